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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Response is the canonical form of a captured server response.
type Response struct {
	StatusCode        int               `json:"statusCode"`
	StatusDescription string            `json:"statusDescription,omitempty"`
	Content           *string           `json:"-"`
	Headers           map[string]string `json:"headers,omitempty"`
	Cookies           []Cookie          `json:"cookies,omitempty"`
}

// responseWire mirrors Response but lets content be marshaled either as
// a JSON string or as embedded structured JSON.
type responseWire struct {
	StatusCode        int               `json:"statusCode"`
	StatusDescription string            `json:"statusDescription,omitempty"`
	Content           json.RawMessage   `json:"content,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	Cookies           []Cookie          `json:"cookies,omitempty"`
}

// MarshalJSON embeds Content as structured JSON when the captured text
// itself parses as JSON, and as a plain JSON string otherwise. This is
// a persistence-only distinction: in memory Content is always text.
func (r Response) MarshalJSON() ([]byte, error) {
	wire := responseWire{
		StatusCode:        r.StatusCode,
		StatusDescription: r.StatusDescription,
		Headers:           r.Headers,
		Cookies:           r.Cookies,
	}

	if r.Content != nil {
		text := *r.Content
		if json.Valid([]byte(text)) {
			wire.Content = json.RawMessage(text)
		} else {
			encoded, err := json.Marshal(text)
			if err != nil {
				return nil, err
			}
			wire.Content = encoded
		}
	}

	return json.Marshal(wire)
}

// UnmarshalJSON recovers the text whether Content was embedded as a JSON
// string or as structured JSON. Structured JSON comes back in compact
// form, so indentation added when the cassette was written is dropped.
func (r *Response) UnmarshalJSON(data []byte) error {
	var wire responseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.StatusCode = wire.StatusCode
	r.StatusDescription = wire.StatusDescription
	r.Headers = wire.Headers
	r.Cookies = wire.Cookies
	r.Content = nil

	if len(wire.Content) == 0 || string(wire.Content) == "null" {
		return nil
	}

	var asString string
	if err := json.Unmarshal(wire.Content, &asString); err == nil {
		r.Content = &asString
		return nil
	}

	// Not a JSON string: it was embedded as structured JSON. The
	// recovered text is the raw JSON value itself, compacted.
	var compact bytes.Buffer
	if err := json.Compact(&compact, wire.Content); err != nil {
		return err
	}
	text := compact.String()
	r.Content = &text
	return nil
}

// FromHTTPResponse builds the canonical Response from a live upstream
// response. The whole body is read whatever the Content-Length says and
// kept as UTF-8 text when it is non-empty.
func FromHTTPResponse(resp *http.Response) (*Response, error) {
	out := &Response{
		StatusCode:        resp.StatusCode,
		StatusDescription: strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		Headers:           make(map[string]string, len(resp.Header)),
	}

	if resp.Body != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
		if len(data) > 0 {
			text, err := decodeBody(data, resp.Header.Get("Content-Type"))
			if err != nil {
				return nil, err
			}
			out.Content = &text
		}
	}

	for name, values := range resp.Header {
		if len(values) == 0 {
			continue
		}
		out.Headers[name] = values[0]
	}
	if len(out.Headers) == 0 {
		out.Headers = nil
	}

	for _, c := range resp.Cookies() {
		out.Cookies = append(out.Cookies, cookieFromHTTP(c, ""))
	}

	return out, nil
}

// WriteTo writes the canonical Response to a live http.ResponseWriter,
// applying the response-side restricted-header dispatch table. Once the
// body has been written no further response-property mutation is valid.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	header := w.Header()
	for k := range header {
		header.Del(k)
	}

	for _, c := range r.Cookies {
		http.SetCookie(w, c.toHTTPCookie())
	}

	for name, value := range r.Headers {
		canonical := http.CanonicalHeaderKey(name)
		switch canonical {
		case "Connection":
			if strings.EqualFold(value, "keep-alive") {
				header.Set("Connection", "keep-alive")
			} else {
				header.Set("Connection", value)
			}
		case "Content-Length":
			header.Set("Content-Length", value)
		case "Content-Type":
			header.Set("Content-Type", value)
		case "Location":
			header.Set("Location", value)
		case "Transfer-Encoding":
			if strings.EqualFold(value, "chunked") {
				header.Del("Content-Length")
			}
			header.Set("Transfer-Encoding", value)
		default:
			header.Set(name, value)
		}
	}

	w.WriteHeader(r.StatusCode)

	if r.Content != nil {
		if _, err := io.WriteString(w, *r.Content); err != nil {
			return err
		}
	}

	return nil
}
