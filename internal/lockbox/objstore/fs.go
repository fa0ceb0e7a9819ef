package objstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FS is a filesystem-backed Store. Presigned URLs carry an expiry and an
// HMAC over (method, key, expiry); the same FS instance mounted as an
// http.Handler verifies them and moves the bytes.
type FS struct {
	root    string
	baseURL string // e.g. "http://localhost:8080/blobs"
	secret  []byte
}

func NewFS(root, baseURL string, secret []byte) (*FS, error) {
	if len(secret) == 0 {
		return nil, errors.New("objstore: signing secret required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
	}, nil
}

func (f *FS) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPutTTL
	}
	return f.sign(http.MethodPut, key, "", ttl)
}

func (f *FS) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultGetTTL
	}
	return f.sign(http.MethodGet, key, filename, ttl)
}

func (f *FS) Head(ctx context.Context, key string) (ObjectInfo, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, SizeBytes: fi.Size()}, nil
}

func (f *FS) Delete(ctx context.Context, key string) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ServeHTTP redeems presigned URLs. PUT stores the body; GET streams the
// object back. Anything unsigned, tampered or stale is a 403.
func (f *FS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	expStr := q.Get("exp")
	sig := q.Get("sig")

	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || time.Now().UTC().Unix() > exp {
		http.Error(w, "url expired", http.StatusForbidden)
		return
	}
	if !f.verify(r.Method, key, expStr, sig) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	path, err := f.pathFor(key)
	if err != nil {
		http.Error(w, "bad key", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		dst, err := os.Create(path)
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		defer dst.Close()
		if _, err := io.Copy(dst, r.Body); err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodGet:
		src, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		defer src.Close()
		if filename := q.Get("filename"); filename != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		}
		_, _ = io.Copy(w, src)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *FS) sign(method, key, filename string, ttl time.Duration) (string, error) {
	exp := time.Now().UTC().Add(ttl).Unix()
	expStr := strconv.FormatInt(exp, 10)

	v := url.Values{}
	v.Set("key", key)
	v.Set("exp", expStr)
	v.Set("sig", f.mac(method, key, expStr))
	if filename != "" {
		v.Set("filename", filename)
	}
	return f.baseURL + "?" + v.Encode(), nil
}

func (f *FS) verify(method, key, expStr, sig string) bool {
	expected := f.mac(method, key, expStr)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (f *FS) mac(method, key, expStr string) string {
	m := hmac.New(sha256.New, f.secret)
	fmt.Fprintf(m, "%s\n%s\n%s", method, key, expStr)
	return hex.EncodeToString(m.Sum(nil))
}

// pathFor maps a storage key to a path under root, rejecting traversal.
func (f *FS) pathFor(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("objstore: invalid key %q", key)
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}
