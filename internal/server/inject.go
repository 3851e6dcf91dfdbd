package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

const scriptTag = `<script src="/livereload.js"></script>`

// injectReloadScript buffers HTML responses and splices the livereload
// script tag before </body>. Non-HTML responses and oversized pages pass
// through untouched.
func injectReloadScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		isHTML := path == "/" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")
		if !isHTML {
			next.ServeHTTP(w, r)
			return
		}

		injector := &scriptInjector{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// scriptInjector buffers the response body up to a size limit so the script
// tag can be inserted before the closing body tag.
type scriptInjector struct {
	http.ResponseWriter
	statusCode    int
	buffer        bytes.Buffer
	headerWritten bool
	passthrough   bool
}

const injectMaxSize = 512 * 1024

func (s *scriptInjector) WriteHeader(code int) {
	s.statusCode = code
	if s.passthrough {
		s.ResponseWriter.WriteHeader(code)
		s.headerWritten = true
	}
}

func (s *scriptInjector) Write(data []byte) (int, error) {
	if !s.headerWritten && !s.passthrough && s.buffer.Len() == 0 {
		contentType := s.ResponseWriter.Header().Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") {
			s.switchToPassthrough()
			return s.ResponseWriter.Write(data)
		}
	}
	if s.passthrough {
		return s.ResponseWriter.Write(data)
	}
	if s.buffer.Len()+len(data) > injectMaxSize {
		s.switchToPassthrough()
		if s.buffer.Len() > 0 {
			if _, err := s.ResponseWriter.Write(s.buffer.Bytes()); err != nil {
				return 0, err
			}
			s.buffer.Reset()
		}
		return s.ResponseWriter.Write(data)
	}
	return s.buffer.Write(data)
}

func (s *scriptInjector) switchToPassthrough() {
	s.passthrough = true
	s.ResponseWriter.Header().Del("Content-Length")
	s.ResponseWriter.WriteHeader(s.statusCode)
	s.headerWritten = true
}

// finalize writes the buffered body with the script tag spliced in.
func (s *scriptInjector) finalize() {
	if s.passthrough {
		return
	}
	body := s.buffer.Bytes()
	if idx := bytes.LastIndex(body, []byte("</body>")); idx >= 0 {
		injected := make([]byte, 0, len(body)+len(scriptTag))
		injected = append(injected, body[:idx]...)
		injected = append(injected, []byte(scriptTag)...)
		injected = append(injected, body[idx:]...)
		body = injected
	}
	s.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(body)))
	s.ResponseWriter.WriteHeader(s.statusCode)
	_, _ = s.ResponseWriter.Write(body)
}
