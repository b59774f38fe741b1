package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"regexp"
	"strings"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// Validator detects identical uploads before processing. Duplication is a
// UX optimization, not a correctness guarantee: on any storage error the
// check fails open and reports no duplicate.
type Validator struct {
	db core.DbClient
}

func NewValidator(db core.DbClient) *Validator {
	return &Validator{db: db}
}

// Criteria carries the identifying attributes of a candidate upload. Any
// subset may be set.
type Criteria struct {
	Filename    string
	FileHash    string // sha256 of raw bytes
	ContentHash string // sha256 of normalized converted text
}

// Check probes for an existing document in the organization matching the
// criteria. Precedence: filename, then raw file hash, then normalized
// content hash; the first hash hit wins. MatchType reports "both" when the
// filename and a hash both matched.
func (v *Validator) Check(ctx context.Context, orgID string, c Criteria, excludeDocumentID string) models.DuplicateCheck {
	var byName string
	if c.Filename != "" {
		id, err := v.db.FindDocumentByFilename(ctx, orgID, c.Filename, excludeDocumentID)
		if err != nil {
			log.Printf("WARN: duplicate check by filename failed, failing open: %v", err)
			return models.DuplicateCheck{}
		}
		byName = id
	}

	byHash := v.checkHashes(ctx, orgID, c, excludeDocumentID)

	switch {
	case byName != "" && byHash != "":
		return models.DuplicateCheck{IsDuplicate: true, ExistingDocumentID: byName, MatchType: models.MatchBoth}
	case byName != "":
		return models.DuplicateCheck{IsDuplicate: true, ExistingDocumentID: byName, MatchType: models.MatchFilename}
	case byHash != "":
		return models.DuplicateCheck{IsDuplicate: true, ExistingDocumentID: byHash, MatchType: models.MatchContentHash}
	}
	return models.DuplicateCheck{}
}

func (v *Validator) checkHashes(ctx context.Context, orgID string, c Criteria, excludeID string) string {
	if c.FileHash != "" {
		id, err := v.db.FindDocumentByFileHash(ctx, orgID, c.FileHash, excludeID)
		if err != nil {
			log.Printf("WARN: duplicate check by file hash failed, failing open: %v", err)
			return ""
		}
		if id != "" {
			return id
		}
	}
	if c.ContentHash != "" {
		id, err := v.db.FindDocumentByContentHash(ctx, orgID, c.ContentHash, excludeID)
		if err != nil {
			log.Printf("WARN: duplicate check by content hash failed, failing open: %v", err)
			return ""
		}
		if id != "" {
			return id
		}
	}
	return ""
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// NormalizeContent canonicalizes converted text before hashing so cosmetic
// re-saves do not register as new content: line endings become \n, runs of
// three or more blank lines collapse to one blank line, and the whole text
// is trimmed.
func NormalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FileHash hashes raw uploaded bytes.
func FileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentHash hashes normalized converted text.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}
