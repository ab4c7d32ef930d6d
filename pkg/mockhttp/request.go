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

// Package mockhttp holds the canonical, JSON-persistable form of a
// captured HTTP request/response pair (an Exchange) and the conversions
// to and from live net/http values.
package mockhttp

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Request is the canonical form of a captured client request.
type Request struct {
	Method  string            `json:"method"`
	URI     string            `json:"uri"`
	Content *string           `json:"content,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Cookies []Cookie          `json:"cookies,omitempty"`
}

// FromHTTPRequest builds the canonical Request from a live incoming
// request, substituting the upstream's scheme and authority for the
// listener's own and capturing the body (if any) as UTF-8 text. The
// declared charset of the request is not applied (see decodeBody).
func FromHTTPRequest(r *http.Request, upstream Upstream) (*Request, error) {
	out := &Request{
		Method:  strings.ToUpper(r.Method),
		URI:     upstream.Raw + r.URL.RequestURI(),
		Headers: make(map[string]string, len(r.Header)),
	}

	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 {
			text, err := decodeBody(data, r.Header.Get("Content-Type"))
			if err != nil {
				return nil, err
			}
			out.Content = &text
		}
	}

	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		out.Headers[name] = values[0]
	}
	// net/http splits the mandatory Host header into r.Host rather than
	// r.Header; fold it back in, rewritten to the upstream authority, so
	// it round-trips through the cassette like any other header.
	if r.Host != "" {
		out.Headers["Host"] = upstream.Host()
	}
	if len(out.Headers) == 0 {
		out.Headers = nil
	}

	for _, c := range r.Cookies() {
		out.Cookies = append(out.Cookies, cookieFromHTTP(c, upstream.Hostname()))
	}

	return out, nil
}

// ToHTTPRequest reconstructs an outbound *http.Request from the
// canonical Request, applying the restricted-header dispatch table. It
// is used only while recording, to replay the live request against the
// real upstream.
func (req *Request) ToHTTPRequest() (*http.Request, error) {
	var body io.Reader
	if req.Content != nil {
		body = strings.NewReader(*req.Content)
	}

	httpReq, err := http.NewRequest(req.Method, req.URI, body)
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		httpReq.ContentLength = int64(len(*req.Content))
	}

	for name, value := range req.Headers {
		canonical := http.CanonicalHeaderKey(name)
		switch canonical {
		case "Accept":
			httpReq.Header.Set("Accept", value)
		case "Connection":
			switch strings.ToLower(value) {
			case "keep-alive":
				httpReq.Close = false
			case "close":
				httpReq.Close = true
			default:
				httpReq.Header.Set("Connection", value)
			}
		case "Content-Length":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				httpReq.ContentLength = n
			}
		case "Content-Type":
			httpReq.Header.Set("Content-Type", value)
		case "Date":
			if t, err := http.ParseTime(value); err == nil {
				httpReq.Header.Set("Date", t.Format(http.TimeFormat))
			}
		case "Expect":
			remaining := stripExpectContinue(value)
			if remaining != "" {
				httpReq.Header.Set("Expect", remaining)
			}
		case "Host":
			httpReq.Host = value
		case "If-Modified-Since":
			if t, err := http.ParseTime(value); err == nil {
				httpReq.Header.Set("If-Modified-Since", t.Format(http.TimeFormat))
			}
		case "Referer":
			httpReq.Header.Set("Referer", value)
		case "Transfer-Encoding":
			if strings.EqualFold(value, "chunked") {
				httpReq.TransferEncoding = []string{"chunked"}
			} else {
				httpReq.Header.Set("Transfer-Encoding", value)
			}
		case "User-Agent":
			httpReq.Header.Set("User-Agent", value)
		default:
			httpReq.Header.Set(name, value)
		}
	}

	for _, c := range req.Cookies {
		httpReq.AddCookie(c.toHTTPCookie())
	}

	return httpReq, nil
}

// stripExpectContinue removes any "100-continue" token from an Expect
// header value and returns what, if anything, remains.
func stripExpectContinue(value string) string {
	parts := strings.Split(value, ",")
	kept := parts[:0]
	for _, p := range parts {
		if strings.EqualFold(strings.TrimSpace(p), "100-continue") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.TrimSpace(strings.Join(kept, ","))
}

// Equal implements the request-matching predicate: method, URI and body
// compared exactly; headers and cookies compared for presence/count/
// value with the Keep-Alive tolerance applied to the recorded side.
func (req *Request) Equal(live *Request) bool {
	if req == nil || live == nil {
		return req == live
	}

	if req.Method != live.Method {
		return false
	}

	if req.URI != live.URI {
		return false
	}

	if !contentEqual(req.Content, live.Content) {
		return false
	}

	if !headersMatch(req.Headers, live.Headers) {
		return false
	}

	if !cookiesMatch(req.Cookies, live.Cookies) {
		return false
	}

	return true
}

func contentEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// headersMatch requires both absent or both present with the same count
// and per-key values. Before comparing, a
// recorded "Connection: Keep-Alive" is dropped if the live request
// carries no Connection header at all.
func headersMatch(recorded, live map[string]string) bool {
	if len(recorded) == 0 && len(live) == 0 {
		return true
	}

	adjusted := recorded
	if v, ok := lookupCaseInsensitive(recorded, "Connection"); ok && strings.EqualFold(v, "keep-alive") {
		if _, liveHas := lookupCaseInsensitive(live, "Connection"); !liveHas {
			adjusted = make(map[string]string, len(recorded))
			for k, val := range recorded {
				if strings.EqualFold(k, "Connection") {
					continue
				}
				adjusted[k] = val
			}
		}
	}

	recordedEmpty := len(adjusted) == 0
	liveEmpty := len(live) == 0
	if recordedEmpty != liveEmpty {
		return false
	}
	if recordedEmpty && liveEmpty {
		return true
	}

	if len(adjusted) != len(live) {
		return false
	}

	for k, v := range adjusted {
		lv, ok := lookupCaseInsensitive(live, k)
		if !ok || lv != v {
			return false
		}
	}

	return true
}

func lookupCaseInsensitive(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func cookiesMatch(recorded, live []Cookie) bool {
	if len(recorded) == 0 && len(live) == 0 {
		return true
	}
	if len(recorded) != len(live) {
		return false
	}

	byName := make(map[string]Cookie, len(live))
	for _, c := range live {
		byName[c.Name] = c
	}

	for _, c := range recorded {
		other, ok := byName[c.Name]
		if !ok || !c.Equal(other) {
			return false
		}
	}

	return true
}
