package storage

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// ErrMissingSecret is returned when no artifact password is configured
var ErrMissingSecret = errors.New("artifact password not configured (set ARTIFACT_PW or PICKLE_PW)")

const (
	jsonSuffix = ".json.aes"
	csvSuffix  = ".csv.aes"
)

// Vault decrypts artifacts from a Source. Each read decrypts into a private
// temp file, decodes it and removes the file before returning.
type Vault struct {
	src      Source
	password string
	tempDir  string
}

// NewVault creates a vault over src. An empty password is rejected up front.
// tempDir may be empty to use the OS temp directory.
func NewVault(src Source, password, tempDir string) (*Vault, error) {
	if password == "" {
		return nil, ErrMissingSecret
	}
	return &Vault{src: src, password: password, tempDir: tempDir}, nil
}

// Source returns the underlying artifact source
func (v *Vault) Source() Source {
	return v.src
}

// ReadJSON decrypts <player>/<file>.json.aes and decodes it into out
func (v *Vault) ReadJSON(ctx context.Context, player, file string, out interface{}) error {
	key, err := artifactKey(player, file, jsonSuffix)
	if err != nil {
		return err
	}
	return v.withPlaintext(ctx, key, func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}
		return nil
	})
}

// ReadCSV decrypts <player>/<file>.csv.aes and returns all records, header first
func (v *Vault) ReadCSV(ctx context.Context, player, file string) ([][]string, error) {
	key, err := artifactKey(player, file, csvSuffix)
	if err != nil {
		return nil, err
	}
	var records [][]string
	err = v.withPlaintext(ctx, key, func(r io.Reader) error {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		var err error
		records, err = cr.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		return nil
	})
	return records, err
}

// artifactKey builds "<player>/<file><suffix>". Player and file are single
// path segments; separators and dot segments are rejected.
func artifactKey(player, file, suffix string) (string, error) {
	for _, part := range []string{player, file} {
		if part == "" || part == "." || strings.Contains(part, "..") || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, part)
		}
	}
	return path.Join(player, file+suffix), nil
}

// withPlaintext runs fn over the decrypted artifact. The temp file is removed
// on every path, including decrypt and decode failures.
func (v *Vault) withPlaintext(ctx context.Context, key string, fn func(io.Reader) error) error {
	src, err := v.src.Open(ctx, key)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(v.tempDir, "artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithField("path", tmpPath).Warnf("[Vault] failed to remove temp file: %v", err)
		}
	}()

	w := bufio.NewWriterSize(tmp, 64*1024)
	if err := Decrypt(src, w, v.password); err != nil {
		return fmt.Errorf("decrypt %s: %w", key, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind temp file: %w", err)
	}

	r, err := maybeGunzip(bufio.NewReader(tmp))
	if err != nil {
		return fmt.Errorf("decompress %s: %w", key, err)
	}
	log.Debugf("[Vault] read %s", key)
	return fn(r)
}

// maybeGunzip transparently decompresses gzip payloads
func maybeGunzip(r *bufio.Reader) (io.Reader, error) {
	magic, err := r.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return r, nil
	}
	return gzip.NewReader(r)
}

// Seal encrypts plaintext from r into dst, gzip-compressing it first when compress is set
func Seal(r io.Reader, dst io.Writer, password string, compress bool) error {
	if password == "" {
		return ErrMissingSecret
	}
	if !compress {
		return Encrypt(r, dst, password)
	}

	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		_, err := io.Copy(gz, r)
		if err == nil {
			err = gz.Close()
		}
		pw.CloseWithError(err)
	}()
	return Encrypt(pr, dst, password)
}
