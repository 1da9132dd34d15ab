package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"net"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
)

// QUICProto is the ALPN protocol negotiated by QUIC channels.
const QUICProto = "pipeframe-quic"

// quicOpenMarker is written by the dialing side so the remote learns about
// the new stream immediately.
var quicOpenMarker = []byte{'!'}

var defaultTLSConfig = tls.Config{
	NextProtos: []string{QUICProto},
}

// quicChannel is one bidirectional QUIC stream. When owner is set, closing
// the channel also closes the connection.
type quicChannel struct {
	quic.Stream
	conn  quic.Connection
	owner bool
}

func (c *quicChannel) Close() error {
	c.Stream.CancelRead(0)
	err := c.Stream.Close()
	if c.owner {
		if cerr := c.conn.CloseWithError(0, "channel closed"); err == nil {
			err = cerr
		}
	}
	return err
}

// DialQUIC opens a QUIC connection to addr and returns a channel over a
// single stream. The server certificate is not verified.
func DialQUIC(addr string) (Channel, error) {
	cfg := defaultTLSConfig.Clone()
	cfg.InsecureSkipVerify = true
	conn, err := quic.DialAddr(context.Background(), addr, cfg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial quic")
	}
	stream, err := conn.OpenStreamSync(context.Background())
	if err != nil {
		conn.CloseWithError(0, "open failed")
		return nil, errors.Wrap(err, "transport: open quic stream")
	}
	if _, err := stream.Write(quicOpenMarker); err != nil {
		conn.CloseWithError(0, "open failed")
		return nil, errors.Wrap(err, "transport: open quic stream")
	}
	return &quicChannel{Stream: stream, conn: conn, owner: true}, nil
}

type quicListener struct {
	l *quic.Listener
}

// ListenQUIC listens for QUIC connections on addr. Each accepted connection
// yields one channel over its first stream. A nil tlsConfig uses a freshly
// generated self-signed certificate.
func ListenQUIC(addr string, tlsConfig *tls.Config) (Listener, error) {
	if tlsConfig == nil {
		var err error
		tlsConfig, err = generateTLSConfig()
		if err != nil {
			return nil, err
		}
	}
	l, err := quic.ListenAddr(addr, tlsConfig, nil)
	if err != nil {
		return nil, errors.Wrap(err, "transport: listen quic")
	}
	return &quicListener{l: l}, nil
}

func (l *quicListener) Accept() (Channel, error) {
	ctx := context.Background()
	conn, err := l.l.Accept(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "accept failed")
		return nil, err
	}
	marker := make([]byte, len(quicOpenMarker))
	if _, err := stream.Read(marker); err != nil {
		conn.CloseWithError(0, "accept failed")
		return nil, err
	}
	return &quicChannel{Stream: stream, conn: conn, owner: true}, nil
}

func (l *quicListener) Close() error {
	return l.l.Close()
}

func (l *quicListener) Addr() net.Addr {
	return l.l.Addr()
}

func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, "transport: generate key")
	}
	template := x509.Certificate{SerialNumber: big.NewInt(1)}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "transport: create certificate")
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "transport: load key pair")
	}
	cfg := defaultTLSConfig.Clone()
	cfg.Certificates = []tls.Certificate{tlsCert}
	return cfg, nil
}
