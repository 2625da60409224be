// Package awssign signs outgoing HTTP requests with AWS Signature Version 4.
package awssign

import (
	"net/http"
	"os"

	awsauth "github.com/smartystreets/go-aws-auth"
)

// Transport handles wrapping requests to AWS services
type Transport struct {
	Credentials awsauth.Credentials
	transport   http.RoundTripper
}

// NewTransport returns a RoundTripper signing every request with the given keys. Without
// keys it returns base (http.DefaultTransport when nil) untouched.
func NewTransport(accessKeyID, secretAccessKey, securityToken string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if accessKeyID != "" && secretAccessKey != "" {
		return &Transport{
			Credentials: awsauth.Credentials{
				AccessKeyID:     accessKeyID,
				SecretAccessKey: secretAccessKey,
				SecurityToken:   securityToken,
			},
			transport: base,
		}
	}
	return base
}

// FromEnvironment is NewTransport with the keys missing from the arguments read from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func FromEnvironment(accessKeyID, secretAccessKey string, base http.RoundTripper) http.RoundTripper {
	token := ""
	if accessKeyID == "" && secretAccessKey == "" {
		accessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		secretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		token = os.Getenv("AWS_SESSION_TOKEN")
	}
	return NewTransport(accessKeyID, secretAccessKey, token, base)
}

// RoundTrip implementation
func (a Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	awsauth.Sign4(req, a.Credentials)
	return a.transport.RoundTrip(req)
}
