package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qcbench/qcbench/internal/filelock"
	"github.com/qcbench/qcbench/internal/inference"
	"github.com/qcbench/qcbench/internal/qcerr"
)

// Store owns one Document and the on-disk path it round-trips to.
type Store struct {
	path string
	Doc  *Document
}

// Open loads the document at path, creating a fresh one if the file does
// not exist. When an existing document fails to parse, Open runs the
// corruption-recovery pipeline in memory and continues with the repaired
// document rather than failing the whole run (spec.md §7: "unparseable
// results document on open triggers recovery").
func Open(path, targetModel, suiteName string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{path: path, Doc: &Document{TargetModel: targetModel, TestSuiteName: suiteName}}, nil
	}
	if err != nil {
		return nil, qcerr.Wrap(qcerr.KindDataIntegrity, "open", path, 1, err)
	}

	if err := backup(path, data); err != nil {
		return nil, qcerr.Wrap(qcerr.KindDataIntegrity, "backup", path, 1, err)
	}

	doc, parseErr := parseDocument(data)
	if parseErr != nil {
		repaired, _, recErr := Recover(data)
		if recErr != nil {
			return nil, qcerr.Wrap(qcerr.KindDataIntegrity, "open", path, 1, parseErr).WithPartial()
		}
		doc = repaired
	}

	if doc.TargetModel != targetModel || doc.TestSuiteName != suiteName {
		return nil, qcerr.New(qcerr.KindConfiguration, "open", path).
			WithMessage(fmt.Sprintf("results document is for model %q / suite %q, run requested %q / %q",
				doc.TargetModel, doc.TestSuiteName, targetModel, suiteName))
	}

	doc.ReconcileBase("")

	return &Store{path: path, Doc: doc}, nil
}

func parseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// backup copies the current on-disk bytes to a timestamped sibling before
// any mutation touches the document.
func backup(path string, data []byte) error {
	backupPath := fmt.Sprintf("%s.bak-%d", path, time.Now().UnixNano())
	return os.WriteFile(backupPath, data, 0644)
}

// Save rewrites the document to its path under an exclusive file lock
// (spec.md §4.6: tmp-sibling, flush, replace; remove temp file on any
// error), so two qcbench processes pointed at the same --output path
// serialize their writes instead of racing the rename.
func (s *Store) Save() error {
	data, err := marshalDocument(s.Doc)
	if err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "save", s.path, 1, err)
	}
	if err := filelock.LockAndWrite(s.path, data); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, "save", s.path, 1, err)
	}
	return nil
}

func marshalDocument(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ManifestFetcher fetches a third-party registry's manifest bytes for a
// model tag, used only as the deterministic digest fallback below.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, source, tag string) ([]byte, error)
}

// DigestBackfill fills in Digest for any variant that lacks one: primary
// registry variants are re-queried against client's tag listing; for
// third-party-registry variants with no local digest, the SHA-256 of the
// fetched manifest is used as a deterministic fallback (spec.md §4.6).
// manifests may be nil when no third-party registry integration is wired;
// third-party variants are then looked up in client's tag listing like any
// other, and are left without a digest when no listed name matches.
func (s *Store) DigestBackfill(ctx context.Context, client *inference.Client, manifests ManifestFetcher) error {
	var summaries []inference.ModelSummary
	var listErr error

	for i := range s.Doc.Variants {
		v := &s.Doc.Variants[i]
		if v.Digest != "" {
			continue
		}

		if manifests != nil && isThirdPartyModel(v.ModelName) {
			data, err := manifests.FetchManifest(ctx, v.ModelName, v.Tag)
			if err != nil {
				continue
			}
			sum := sha256.Sum256(data)
			v.Digest = hex.EncodeToString(sum[:])
			continue
		}

		if summaries == nil && listErr == nil {
			summaries, listErr = client.List(ctx)
		}
		if listErr != nil {
			continue
		}
		for _, sm := range summaries {
			if sm.Name == v.ModelName {
				v.Digest = sm.Digest
				break
			}
		}
	}
	return nil
}

func isThirdPartyModel(name string) bool {
	return strings.Contains(name, "/")
}

// PathFor returns the path of the sibling file named by appending suffix
// to the document's file name (a backup or .fixed.json sibling).
func (s *Store) PathFor(suffix string) string {
	return filepath.Join(filepath.Dir(s.path), filepath.Base(s.path)+suffix)
}
