package storage

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
)

// AES Crypt stream format, version 2 (the format pyAesCrypt writes)
const (
	aesBlockSize     = aes.BlockSize
	stretchRounds    = 8192
	containerExtSize = 128
	createdBy        = "epicdash"
)

var (
	// ErrBadPassword is returned when the header HMAC does not verify
	ErrBadPassword = errors.New("wrong password (or file is corrupted)")
	// ErrCorrupt is returned for truncated or tampered containers
	ErrCorrupt = errors.New("corrupted encrypted container")
)

// stretchKey derives the outer key from the password: 8192 rounds of
// SHA-256 over the running digest and the UTF-16LE password.
func stretchKey(password string, iv []byte) ([]byte, error) {
	pw, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to encode password: %w", err)
	}

	digest := make([]byte, 32)
	copy(digest, iv)
	for i := 0; i < stretchRounds; i++ {
		h := sha256.New()
		h.Write(digest)
		h.Write(pw)
		digest = h.Sum(nil)
	}
	return digest, nil
}

// Encrypt writes plaintext from r to w as an AES Crypt v2 container
func Encrypt(r io.Reader, w io.Writer, password string) error {
	plain, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read plaintext: %w", err)
	}

	ivExt := make([]byte, aesBlockSize)
	ivMain := make([]byte, aesBlockSize)
	intKey := make([]byte, 32)
	for _, b := range [][]byte{ivExt, ivMain, intKey} {
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("failed to generate random bytes: %w", err)
		}
	}

	key, err := stretchKey(password, ivExt)
	if err != nil {
		return err
	}

	// Encrypt main IV and internal key with the stretched key
	outer, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	ivKey := append(append([]byte{}, ivMain...), intKey...)
	encIVKey := make([]byte, len(ivKey))
	cipher.NewCBCEncrypter(outer, ivExt).CryptBlocks(encIVKey, ivKey)

	mac1 := hmac.New(sha256.New, key)
	mac1.Write(encIVKey)

	// Pad with the pad length, nothing when already block aligned
	fs16 := len(plain) % aesBlockSize
	if fs16 != 0 {
		padLen := aesBlockSize - fs16
		plain = append(plain, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
	}
	inner, err := aes.NewCipher(intKey)
	if err != nil {
		return err
	}
	cipherText := make([]byte, len(plain))
	cipher.NewCBCEncrypter(inner, ivMain).CryptBlocks(cipherText, plain)

	mac0 := hmac.New(sha256.New, intKey)
	mac0.Write(cipherText)

	bw := bufio.NewWriter(w)
	bw.WriteString("AES")
	bw.Write([]byte{0x02, 0x00})

	ext := "CREATED_BY\x00" + createdBy
	bw.Write([]byte{byte(len(ext) >> 8), byte(len(ext))})
	bw.WriteString(ext)
	bw.Write([]byte{0x00, containerExtSize})
	bw.Write(make([]byte, containerExtSize))
	bw.Write([]byte{0x00, 0x00})

	bw.Write(ivExt)
	bw.Write(encIVKey)
	bw.Write(mac1.Sum(nil))
	bw.Write(cipherText)
	bw.WriteByte(byte(fs16))
	bw.Write(mac0.Sum(nil))

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write container: %w", err)
	}
	return nil
}

// Decrypt reads an AES Crypt v2 container from r and writes the plaintext to w
func Decrypt(r io.Reader, w io.Writer, password string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read container: %w", err)
	}

	if len(data) < 5 || string(data[:3]) != "AES" {
		return fmt.Errorf("%w: not an AES Crypt file", ErrCorrupt)
	}
	if data[3] != 0x02 {
		return fmt.Errorf("%w: unsupported AES Crypt version %d", ErrCorrupt, data[3])
	}
	pos := 5

	// Skip extensions until the zero-length terminator
	for {
		if pos+2 > len(data) {
			return fmt.Errorf("%w: truncated extensions", ErrCorrupt)
		}
		extLen := int(data[pos])<<8 | int(data[pos+1])
		pos += 2
		if extLen == 0 {
			break
		}
		pos += extLen
	}

	// ivExt(16) + encrypted ivMain/key(48) + hmac(32) + fs16(1) + hmac(32)
	if pos+16+48+32+1+32 > len(data) {
		return fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	ivExt := data[pos : pos+16]
	pos += 16
	encIVKey := data[pos : pos+48]
	pos += 48
	headerMAC := data[pos : pos+32]
	pos += 32

	key, err := stretchKey(password, ivExt)
	if err != nil {
		return err
	}
	mac1 := hmac.New(sha256.New, key)
	mac1.Write(encIVKey)
	if !hmac.Equal(mac1.Sum(nil), headerMAC) {
		return ErrBadPassword
	}

	outer, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	ivKey := make([]byte, 48)
	cipher.NewCBCDecrypter(outer, ivExt).CryptBlocks(ivKey, encIVKey)
	ivMain, intKey := ivKey[:16], ivKey[16:]

	cipherText := data[pos : len(data)-33]
	fs16 := int(data[len(data)-33])
	fileMAC := data[len(data)-32:]
	if len(cipherText)%aesBlockSize != 0 || fs16 >= aesBlockSize {
		return fmt.Errorf("%w: bad ciphertext length", ErrCorrupt)
	}

	mac0 := hmac.New(sha256.New, intKey)
	mac0.Write(cipherText)
	if !hmac.Equal(mac0.Sum(nil), fileMAC) {
		return fmt.Errorf("%w: payload HMAC mismatch", ErrCorrupt)
	}

	inner, err := aes.NewCipher(intKey)
	if err != nil {
		return err
	}
	plain := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(inner, ivMain).CryptBlocks(plain, cipherText)

	if trim := (aesBlockSize - fs16) % aesBlockSize; trim != 0 {
		if trim > len(plain) {
			return fmt.Errorf("%w: bad padding", ErrCorrupt)
		}
		plain = plain[:len(plain)-trim]
	}

	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("failed to write plaintext: %w", err)
	}
	return nil
}
