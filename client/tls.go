package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io/ioutil"
	"os"
	"strings"
)

// ErrCertNotFound is returned when a configured CA certificate file does not exist.
var ErrCertNotFound = errors.New("cert file not found")

const pemPrefix = "-----BEGIN"

// TLSConfig builds the TLS settings of a database connection. It returns nil when
// neither ssl nor certs are set. ssl alone skips server verification, certs (PEM blocks
// or paths to PEM files) become the root CAs and enable it.
func TLSConfig(ssl bool, certs []string) (*tls.Config, error) {
	if !ssl && len(certs) == 0 {
		return nil, nil
	}
	if len(certs) == 0 {
		return &tls.Config{InsecureSkipVerify: true, RootCAs: x509.NewCertPool()}, nil
	}
	roots := x509.NewCertPool()
	for _, cert := range certs {
		pem, err := readPEM(cert)
		if err != nil {
			return nil, err
		}
		if ok := roots.AppendCertsFromPEM(pem); !ok {
			return nil, ErrInvalidCert
		}
	}
	return &tls.Config{RootCAs: roots}, nil
}

func readPEM(cert string) ([]byte, error) {
	if strings.Contains(cert, pemPrefix) {
		return []byte(cert), nil
	}
	if _, err := os.Stat(cert); err != nil {
		return nil, ErrCertNotFound
	}
	return ioutil.ReadFile(cert)
}
