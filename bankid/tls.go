package bankid

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
	"software.sslmate.com/src/go-pkcs12"
)

// TLSOptions locate the relying party certificate and the BankID issuer CA.
type TLSOptions struct {
	CertPath     string
	CertPassword string
	CAPath       string
	ServerName   string
	Insecure     bool
}

// LoadTLSConfig builds a mutual TLS config from a PKCS#12 bundle and a CA PEM file.
func LoadTLSConfig(opts TLSOptions) (*tls.Config, error) {
	p12, err := os.ReadFile(opts.CertPath)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadTLSConfig] read certificate")
	}
	cert, err := CertificateFromPKCS12(p12, opts.CertPassword)
	if err != nil {
		return nil, err
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil || rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}
	if opts.CAPath != "" {
		caPEM, err := os.ReadFile(opts.CAPath)
		if err != nil {
			return nil, errors.Wrap(err, "[LoadTLSConfig] read CA")
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.New("[LoadTLSConfig] CA PEM could not be parsed")
		}
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		RootCAs:            rootCAs,
		MinVersion:         tls.VersionTLS12,
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.Insecure, //nolint:gosec // test environments only
	}, nil
}

// CertificateFromPKCS12 decodes a bundle in either the legacy (3DES/RC2) or the
// modern (PBES2/AES) format and pairs its key with the certificate chain.
func CertificateFromPKCS12(p12 []byte, password string) (tls.Certificate, error) {
	key, leaf, caCerts, err := pkcs12.DecodeChain(p12, password)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "[CertificateFromPKCS12] decode")
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, errors.Errorf("[CertificateFromPKCS12] unsupported private key type %T", key)
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(leaf.PublicKey) {
		return tls.Certificate{}, errors.New("[CertificateFromPKCS12] private key does not match certificate")
	}

	chain := [][]byte{leaf.Raw}
	for _, ca := range caCerts {
		chain = append(chain, ca.Raw)
	}
	return tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: leaf}, nil
}
