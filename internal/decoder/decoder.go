// Package decoder recovers Unicode text from deposit-export bytes of unknown
// encoding. Bank exports in the wild arrive as UTF-8 (with or without a BOM)
// or as legacy Shift_JIS; the decoder tries UTF-8 first and falls back to
// Shift_JIS when the UTF-8 reading produced replacement characters.
//
// Decoding never fails: the last successful decode is always returned, even
// when imperfect, so a few unreadable glyphs cannot block a run.
package decoder

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"remittance-reconciliation-service/pkg/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw export bytes to a string. The caller is responsible
// for enforcing the upload size cap before decoding.
func Decode(data []byte) string {
	log := logger.GetGlobalLogger().WithComponent("decoder")

	if bytes.HasPrefix(data, utf8BOM) {
		log.Debug("UTF-8 BOM detected, stripping")
		data = data[len(utf8BOM):]
	}

	// Decode as UTF-8, substituting the replacement character for any
	// invalid byte sequence.
	decoded := strings.ToValidUTF8(string(data), "�")
	if !strings.ContainsRune(decoded, '�') {
		return decoded
	}

	// The UTF-8 reading mangled at least one byte sequence. Re-decode the
	// original bytes as Shift_JIS and keep whichever reading came last.
	converted, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		log.WithError(err).Warn("Shift_JIS fallback decode failed, keeping UTF-8 reading")
		return decoded
	}

	log.Debug("decoded payload via Shift_JIS fallback")
	return string(converted)
}
