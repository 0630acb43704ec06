package session

import (
	"bytes"
	"io"
	"net/http"
)

// EncryptedContentType is the Content-Type/Accept value that opts a
// request or response into per-message encryption, spec §4.7.
const EncryptedContentType = "application/x-ddalab-encrypted"

// sessionIDHeader carries the session id for requests that have
// already completed key exchange.
const sessionIDHeader = "X-DDALAB-Session-Id"

// Middleware decrypts inbound bodies carrying EncryptedContentType
// before dispatch, and encrypts outbound bodies when the request's
// Accept header requests it, per spec §4.7. GET requests have no body
// to decrypt; outbound encryption is still driven purely by Accept.
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(sessionIDHeader)
			record, hasSession := store.Get(sessionID)

			if r.Header.Get("Content-Type") == EncryptedContentType && r.Method != http.MethodGet {
				if !hasSession {
					http.Error(w, "unknown or expired session", http.StatusBadRequest)
					return
				}
				body, err := io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, "reading request body", http.StatusBadRequest)
					return
				}
				plaintext, err := record.Decrypt(body)
				if err != nil {
					http.Error(w, "decryption failed", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(plaintext))
				r.ContentLength = int64(len(plaintext))
			}

			wantsEncryptedResponse := r.Header.Get("Accept") == EncryptedContentType
			if !wantsEncryptedResponse || !hasSession {
				next.ServeHTTP(w, r)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, header: make(http.Header)}
			next.ServeHTTP(rec, r)

			ciphertext, err := record.Encrypt(rec.body)
			if err != nil {
				http.Error(w, "encryption failed", http.StatusInternalServerError)
				return
			}
			for k, vs := range rec.header {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			w.Header().Set("Content-Type", EncryptedContentType)
			w.WriteHeader(rec.status)
			_, _ = w.Write(ciphertext)
		})
	}
}

// responseRecorder buffers a handler's response so it can be
// encrypted as a whole before being written to the real
// ResponseWriter, mirroring the "decrypt before dispatch, encrypt
// after the handler runs" contract of spec §4.7.
type responseRecorder struct {
	http.ResponseWriter
	header http.Header
	status int
	body   []byte
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body = append(r.body, b...)
	return len(b), nil
}
