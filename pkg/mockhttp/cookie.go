// Copyright (c) 2015-2024 Marin Atanasov Nikolov <dnaeon@gmail.com>
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer
//    in this position and unchanged.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE AUTHOR(S) ``AS IS'' AND ANY EXPRESS OR
// IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES
// OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE DISCLAIMED.
// IN NO EVENT SHALL THE AUTHOR(S) BE LIABLE FOR ANY DIRECT, INDIRECT,
// INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT
// NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE OF
// THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package mockhttp

import (
	"net/http"
	"time"
)

// Cookie is the canonical, persistence-ready form of an HTTP cookie. It
// mirrors the attributes captured by the original player: most fields are
// optional and are only emitted to the cassette when they carry a
// non-default value.
type Cookie struct {
	Name       string     `json:"Name"`
	Value      string     `json:"Value"`
	Domain     string     `json:"Domain"`
	Comment    string     `json:"Comment,omitempty"`
	CommentURI string     `json:"CommentUri,omitempty"`
	Discard    bool       `json:"Discard,omitempty"`
	Expired    bool       `json:"Expired,omitempty"`
	Expires    *time.Time `json:"Expires,omitempty"`
	Path       string     `json:"Path,omitempty"`
	Port       string     `json:"Port,omitempty"`
	Secure     bool       `json:"Secure,omitempty"`
}

// Equal reports whether two cookies are equal under the per-name equality
// rule used by request matching: same name implies comparison of the
// remaining attributes.
func (c Cookie) Equal(other Cookie) bool {
	if c.Name != other.Name || c.Value != other.Value || c.Domain != other.Domain {
		return false
	}
	if c.Comment != other.Comment || c.CommentURI != other.CommentURI {
		return false
	}
	if c.Discard != other.Discard || c.Expired != other.Expired {
		return false
	}
	if c.Path != other.Path || c.Port != other.Port || c.Secure != other.Secure {
		return false
	}
	if (c.Expires == nil) != (other.Expires == nil) {
		return false
	}
	if c.Expires != nil && !c.Expires.Equal(*other.Expires) {
		return false
	}
	return true
}

// cookieFromHTTP converts a live *http.Cookie into the canonical Cookie
// form. domainOverride, when non-empty, overrides the cookie's own domain — used
// when capturing request-side cookies, whose domain is rewritten to the
// upstream host.
func cookieFromHTTP(c *http.Cookie, domainOverride string) Cookie {
	out := Cookie{
		Name:    c.Name,
		Value:   c.Value,
		Domain:  c.Domain,
		Path:    c.Path,
		Secure:  c.Secure,
		Expired: !c.Expires.IsZero() && c.Expires.Before(time.Now()),
	}
	if domainOverride != "" {
		out.Domain = domainOverride
	}
	if !c.Expires.IsZero() {
		expires := c.Expires
		out.Expires = &expires
	}
	return out
}

// toHTTPCookie converts a canonical Cookie back into an *http.Cookie
// suitable for attaching to an outbound request or inbound response.
func (c Cookie) toHTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: c.Domain,
		Path:   c.Path,
		Secure: c.Secure,
	}
	if c.Expires != nil {
		hc.Expires = *c.Expires
	}
	return hc
}
