package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// DSN points to where doclave stores its own data
	DSN string
	// Collection is the logical knowledge-base name. Distinct knowledge bases
	// must use distinct collection names; it is the unit of isolation.
	Collection string
	// InboxDir, when set, is scanned periodically for documents to ingest.
	InboxDir string
	// Version is the current version of the server
	Version string

	// Chunking configuration
	ChunkSize    int
	ChunkOverlap int

	// AI configuration
	AIBaseURL    string
	AIAPIKey     string
	AIEmbedModel string
	AIChatModel  string
	// AIRerankModel, when set, enables second-stage re-ranking of search
	// results through the provider's rerank endpoint.
	AIRerankModel string
	AIDimensions  int

	// GoldenEmbeddings is an optional path to a JSON file of per-section
	// template embeddings used by the semantic conformance check.
	GoldenEmbeddings string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}
	dataDir = strings.TrimRight(dataDir, "/")

	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and rejects configurations that cannot run.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/doclave"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("doclave_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Collection == "" {
		p.Collection = "compliance_kb"
	}

	if p.ChunkSize <= 0 {
		p.ChunkSize = 1000
	}
	if p.ChunkOverlap < 0 {
		p.ChunkOverlap = 200
	}
	// Chunking cannot make forward progress otherwise.
	if p.ChunkOverlap >= p.ChunkSize {
		return errors.Errorf("chunk overlap %d must be strictly less than chunk size %d", p.ChunkOverlap, p.ChunkSize)
	}

	if p.AIDimensions <= 0 {
		p.AIDimensions = 1536
	}

	return nil
}
