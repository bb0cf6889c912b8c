package main

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ridgeline-eng/docqc/internal/model"
	"github.com/ridgeline-eng/docqc/internal/revision"
)

var (
	ingestProject    string
	ingestKey        string
	ingestFile       string
	ingestHash       string
	ingestRevision   string
	ingestCategory   string
	ingestDiscipline string
	ingestManifest   string
)

// manifestFile is the YAML batch-intake format: one project, many document
// descriptors, each either carrying a content hash or a path to hash.
type manifestFile struct {
	Project   string `yaml:"project"`
	Documents []struct {
		Path       string `yaml:"path,omitempty"`
		LogicalKey string `yaml:"logical_key"`
		Revision   string `yaml:"revision"`
		Category   string `yaml:"category"`
		Discipline string `yaml:"discipline,omitempty"`
		Hash       string `yaml:"content_hash,omitempty"`
	} `yaml:"documents"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a document descriptor, or a batch from a manifest",
	Long:  "Classifies each submission against its revision chain: new document, new revision, duplicate, or revision conflict. Extraction is queued automatically; run 'docqc worker' to process it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		mgr := revision.NewManager(st)

		if ingestManifest != "" {
			return ingestFromManifest(ctx, mgr, ingestManifest)
		}
		return ingestSingle(ctx, mgr)
	},
}

func ingestSingle(ctx context.Context, mgr *revision.Manager) error {
	hash := ingestHash
	if hash == "" {
		if ingestFile == "" {
			return eris.New("either --file or --hash is required")
		}
		h, err := hashFile(ingestFile)
		if err != nil {
			return err
		}
		hash = h
	}

	result, err := mgr.Ingest(ctx, model.IngestDescriptor{
		ProjectID:     ingestProject,
		LogicalKey:    ingestKey,
		ContentHash:   hash,
		RevisionLabel: ingestRevision,
		Category:      ingestCategory,
		Discipline:    ingestDiscipline,
	})
	if err != nil {
		return err
	}

	if result.Outcome == model.IngestRevisionConflict {
		flaggedExit = true
	}
	return printJSON(result)
}

func ingestFromManifest(ctx context.Context, mgr *revision.Manager, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read manifest")
	}
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return eris.Wrap(err, "parse manifest")
	}
	if mf.Project == "" {
		return eris.New("manifest missing project")
	}

	baseDir := filepath.Dir(path)
	summary := map[model.IngestOutcome]int{}
	for _, d := range mf.Documents {
		hash := d.Hash
		if hash == "" {
			if d.Path == "" {
				return eris.Errorf("manifest entry %s needs path or content_hash", d.LogicalKey)
			}
			hash, err = hashFile(filepath.Join(baseDir, d.Path))
			if err != nil {
				return err
			}
		}

		result, err := mgr.Ingest(ctx, model.IngestDescriptor{
			ProjectID:     mf.Project,
			LogicalKey:    d.LogicalKey,
			ContentHash:   hash,
			RevisionLabel: d.Revision,
			Category:      d.Category,
			Discipline:    d.Discipline,
		})
		if err != nil {
			return eris.Wrapf(err, "ingest %s", d.LogicalKey)
		}
		summary[result.Outcome]++
	}

	if summary[model.IngestRevisionConflict] > 0 {
		flaggedExit = true
	}
	zap.L().Info("manifest ingested",
		zap.String("project", mf.Project),
		zap.Int("documents", len(mf.Documents)),
	)
	return printJSON(summary)
}

// hashFile computes the BLAKE3 content hash the pipeline uses as a document
// identity.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestProject, "project", "", "project identifier")
	ingestCmd.Flags().StringVar(&ingestKey, "key", "", "logical document key (e.g. drawing number)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "file to hash for content identity")
	ingestCmd.Flags().StringVar(&ingestHash, "hash", "", "precomputed content hash")
	ingestCmd.Flags().StringVar(&ingestRevision, "rev", "", "revision label (e.g. A, B, 0, 1)")
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "", "document category (e.g. pid, datasheet, line_list)")
	ingestCmd.Flags().StringVar(&ingestDiscipline, "discipline", "", "engineering discipline")
	ingestCmd.Flags().StringVar(&ingestManifest, "manifest", "", "YAML manifest for batch ingest")
	rootCmd.AddCommand(ingestCmd)
}
