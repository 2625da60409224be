// Package uri parses and normalises URLs.
package uri

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/compose/conduit/function"
)

var errMissingHost = errors.New("missing host")

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{Name: "uri-parse", Description: "splits a URI into its components", Creator: func() function.Function { return uriParse{} }},
		{Name: "to-url", Description: "turns a string into an absolute http(s) URL", Creator: func() function.Function { return &ToURL{} }},
		{Name: "url", Description: "alias of to-url", Creator: func() function.Function { return &ToURL{} }},
	}
}

type uriParse struct{}

func (uriParse) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	s, ok := rec.(string)
	if !ok {
		return nil, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{
		"protocol": u.Scheme,
		"hostname": u.Hostname(),
		"port":     u.Port(),
		"path":     u.Path,
		"query":    u.RawQuery,
		"fragment": u.Fragment,
	}
	if u.User != nil {
		out["username"] = u.User.Username()
		if p, ok := u.User.Password(); ok {
			out["password"] = p
		}
	}
	return out, nil
}

// ToURL prefixes the value with Prefix and http:// when it carries no http(s) scheme.
type ToURL struct {
	Prefix              string `json:"prefix"`
	LowercaseHostname   bool   `json:"lowercaseHostname"`
	UseUndefinedOnError bool   `json:"useUndefinedOnError"`
}

func (t *ToURL) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	s, ok := rec.(string)
	if !ok {
		return nil, nil
	}
	s = t.Prefix + strings.TrimSpace(s)
	if !schemePattern.MatchString(s) {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err == nil && u.Host == "" {
		err = &url.Error{Op: "parse", URL: s, Err: errMissingHost}
	}
	if err != nil {
		if t.UseUndefinedOnError {
			return nil, nil
		}
		return nil, err
	}
	if t.LowercaseHostname {
		u.Host = strings.ToLower(u.Host)
	}
	return u.String(), nil
}
