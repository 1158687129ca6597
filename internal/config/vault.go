package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	oerrors "github.com/Aman-CERP/orag/internal/errors"
)

// VaultConfigFile is the per-vault config file name.
const VaultConfigFile = ".orag.yaml"

// DefaultVectorStore is the default vector store directory, relative to the vault root.
const DefaultVectorStore = ".vector_store"

// maxVaultSearchDepth is how many directories FindVaultRoot inspects,
// counting the start directory.
const maxVaultSearchDepth = 5

var collectionNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,61}[A-Za-z0-9]$`)

// VaultConfig is the identity and scope of one vault.
type VaultConfig struct {
	// Name keys the vector store collection. Changing it orphans the old index.
	Name string

	// Dirs are absolute or vault-relative paths. Entries may be single files.
	Dirs []string

	// Exclude holds doublestar patterns matched against vault-relative paths.
	Exclude []string

	// VectorStore is the store location, relative to Root unless absolute.
	VectorStore string

	// Root is the absolute vault root directory.
	Root string
}

// StorePath returns the absolute vector store directory.
func (v VaultConfig) StorePath() string {
	if filepath.IsAbs(v.VectorStore) {
		return v.VectorStore
	}
	return filepath.Join(v.Root, v.VectorStore)
}

// Validate checks that the vault can key a collection.
func (v VaultConfig) Validate() error {
	if !collectionNameRe.MatchString(v.Name) || strings.Contains(v.Name, "..") {
		return fmt.Errorf("vault.name %q must be 3-63 characters of letters, digits, '.', '_' or '-', starting and ending with a letter or digit", v.Name)
	}
	if len(v.Dirs) == 0 {
		return fmt.Errorf("vault.dirs must list at least one path")
	}
	if strings.TrimSpace(v.VectorStore) == "" {
		return fmt.Errorf("storage.vector_store must not be empty")
	}
	return nil
}

// vaultFile mirrors the on-disk layout of .orag.yaml.
type vaultFile struct {
	Vault struct {
		Name    string   `yaml:"name,omitempty"`
		Dirs    []string `yaml:"dirs,omitempty"`
		Exclude []string `yaml:"exclude,omitempty"`
	} `yaml:"vault"`
	Storage struct {
		VectorStore string `yaml:"vector_store,omitempty"`
	} `yaml:"storage"`
}

// FindVaultRoot looks for .orag.yaml in start and its parents.
// At most five directories are inspected, counting start itself.
func FindVaultRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", oerrors.ConfigNotFound(fmt.Sprintf("cannot resolve %s: %v", start, err))
	}

	current := abs
	for i := 0; i < maxVaultSearchDepth; i++ {
		if fileExists(filepath.Join(current, VaultConfigFile)) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", oerrors.ConfigNotFound(fmt.Sprintf("no %s found in %s or parent directories", VaultConfigFile, abs))
}

// LoadVault reads .orag.yaml from root.
// Returns a ConfigNotFound error if the file is absent and ConfigInvalid if it
// cannot be parsed or fails validation.
func LoadVault(root string) (VaultConfig, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return VaultConfig{}, oerrors.ConfigInvalid(fmt.Sprintf("cannot resolve vault root %s", root), err)
	}

	path := filepath.Join(absRoot, VaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return VaultConfig{}, oerrors.ConfigNotFound(fmt.Sprintf("no %s found in %s", VaultConfigFile, absRoot))
		}
		return VaultConfig{}, oerrors.ConfigInvalid(fmt.Sprintf("cannot read %s", path), err)
	}

	var vf vaultFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return VaultConfig{}, oerrors.ConfigInvalid(fmt.Sprintf("error parsing %s", path), err)
	}

	cfg := VaultConfig{
		Name:        vf.Vault.Name,
		Dirs:        vf.Vault.Dirs,
		Exclude:     vf.Vault.Exclude,
		VectorStore: vf.Storage.VectorStore,
		Root:        absRoot,
	}
	if cfg.Name == "" {
		cfg.Name = DefaultVaultName(absRoot)
	}
	if len(cfg.Dirs) == 0 {
		cfg.Dirs = []string{"."}
	}
	if cfg.VectorStore == "" {
		cfg.VectorStore = DefaultVectorStore
	}

	if err := cfg.Validate(); err != nil {
		return VaultConfig{}, oerrors.ConfigInvalid(err.Error(), err)
	}
	return cfg, nil
}

// DefaultVaultName derives a collection-safe name from the vault directory.
func DefaultVaultName(root string) string {
	base := filepath.Base(root)

	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}

	name := strings.Trim(sb.String(), "-_")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-_")
	}
	for len(name) < 3 {
		name += "0"
	}
	return name
}

// WriteVaultConfig writes .orag.yaml into root.
// An existing file is only replaced when force is set, after being backed up.
func WriteVaultConfig(root string, cfg VaultConfig, force bool) (string, error) {
	path := filepath.Join(root, VaultConfigFile)

	if fileExists(path) {
		if !force {
			return "", fmt.Errorf("%s already exists at %s", VaultConfigFile, root)
		}
		if _, err := BackupVaultConfig(root); err != nil {
			return "", err
		}
	}

	var vf vaultFile
	vf.Vault.Name = cfg.Name
	vf.Vault.Dirs = cfg.Dirs
	vf.Vault.Exclude = cfg.Exclude
	vf.Storage.VectorStore = cfg.VectorStore
	if vf.Storage.VectorStore == "" {
		vf.Storage.VectorStore = DefaultVectorStore
	}

	data, err := yaml.Marshal(&vf)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vault config: %w", err)
	}

	header := "# orag vault configuration\n# vault.name keys the vector store collection; dirs are relative to this file.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return "", fmt.Errorf("failed to write vault config: %w", err)
	}
	return path, nil
}
