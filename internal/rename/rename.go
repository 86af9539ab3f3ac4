package rename

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/pkg/utils"
)

// KeyLength is the number of digits of an NF-e access key.
const KeyLength = 44

// Status labels reported per entry.
const (
	StatusValid    = "Válido"
	StatusInvalid  = "Erro - Chave inválida"
	StatusNotFound = "Erro - Arquivo não encontrado"
	statusSuccess  = "Sucesso - "
	statusError    = "Erro - "
)

var (
	ErrInvalidKey   = errors.New("invalid access key")
	ErrFileNotFound = errors.New("no file matches the access key")
)

var (
	nonDigits    = regexp.MustCompile(`[^0-9]`)
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// NormalizeKey strips every non-digit character.
func NormalizeKey(key string) string {
	return nonDigits.ReplaceAllString(key, "")
}

// ValidateKey returns the normalized key, or ErrInvalidKey unless it has
// exactly 44 digits.
func ValidateKey(key string) (string, error) {
	k := NormalizeKey(key)
	if len(k) != KeyLength {
		return "", fmt.Errorf("%w: %q has %d digit(s)", ErrInvalidKey, key, len(k))
	}
	return k, nil
}

// SanitizeName removes characters that are not allowed in file names. An
// empty result falls back to NF_<key>.
func SanitizeName(name, key string) string {
	clean := strings.TrimSpace(invalidChars.ReplaceAllString(name, ""))
	if clean == "" {
		return "NF_" + key
	}
	return clean
}

// =============================================================================
// PLAN
// =============================================================================

// Move is one planned rename.
type Move struct {
	From string
	To   string
}

// Item is the plan and outcome for one entry.
type Item struct {
	Entry

	// Normalized is the digit-only key; empty when the key is invalid.
	Normalized string

	Moves  []Move
	Status string
	Err    error
}

// Plan matches every entry against the files directly inside dir.
//
// Each file whose name contains the key is scheduled for renaming to the
// sanitized name, keeping its own extension, so the XML and the PDF of the
// same invoice are renamed together. Destination collisions get " (n)"; a
// file that already carries the name is planned as a no-op move.
// Plan touches nothing on disk.
func Plan(dir string, entries []Entry) ([]Item, error) {
	files, err := utils.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool)
	taken := make(map[string]bool)
	items := make([]Item, 0, len(entries))

	for _, e := range entries {
		item := Item{Entry: e}

		key, err := ValidateKey(e.Key)
		if err != nil {
			item.Status, item.Err = StatusInvalid, err
			items = append(items, item)
			continue
		}
		item.Normalized = key

		name := SanitizeName(e.Name, key)
		for _, f := range files {
			if used[f] || !strings.Contains(filepath.Base(f), key) {
				continue
			}
			ext := filepath.Ext(f)
			to := filepath.Join(dir, name+ext)
			if f != to {
				to = utils.UniquePath(dir, name, ext, taken)
			}
			used[f], taken[to] = true, true
			item.Moves = append(item.Moves, Move{From: f, To: to})
		}

		if len(item.Moves) == 0 {
			item.Status, item.Err = StatusNotFound, fmt.Errorf("%w: %s", ErrFileNotFound, key)
		} else {
			item.Status = StatusValid
		}
		items = append(items, item)
	}
	return items, nil
}

// =============================================================================
// APPLY
// =============================================================================

// Logger receives one line per rename.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Summary counts the outcome of Apply.
type Summary struct {
	Renamed  int
	NotFound int
	Invalid  int
	Errors   int
}

// Apply performs the planned moves and updates each item's status in place.
// A dry run only sets the success status.
func Apply(items []Item, dryRun bool, log Logger) Summary {
	var s Summary

	for i := range items {
		item := &items[i]

		switch item.Status {
		case StatusInvalid:
			s.Invalid++
			log.Warnf("Invalid access key: %s", item.Key)
			continue
		case StatusNotFound:
			s.NotFound++
			log.Warnf("No file found for key %s", item.Normalized)
			continue
		}

		names := make([]string, 0, len(item.Moves))
		var failed error
		for _, m := range item.Moves {
			if !dryRun && m.From != m.To {
				if err := utils.MoveFile(m.From, m.To); err != nil {
					failed = err
					break
				}
			}
			names = append(names, filepath.Base(m.To))
			if m.From == m.To {
				log.Infof("Already named %s", filepath.Base(m.To))
				continue
			}
			log.Infof("Renamed %s -> %s", filepath.Base(m.From), filepath.Base(m.To))
		}

		if failed != nil {
			s.Errors++
			item.Err = failed
			item.Status = statusError + failed.Error()
			log.Warnf("Rename failed for key %s: %v", item.Normalized, failed)
			continue
		}

		s.Renamed += len(names)
		item.Status = statusSuccess + strings.Join(names, ", ")
	}
	return s
}
