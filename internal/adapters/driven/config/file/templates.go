package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure TemplateStore implements the interface.
var _ driven.TemplateStore = (*TemplateStore)(nil)

// TemplateStore loads report templates from user-editable TOML files, one
// per report type ("executive.toml"). Fields left out of a file are taken
// from the built-in template.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type TemplateStore struct {
	mu       sync.RWMutex
	dir      string
	cache    map[domain.ReportType]domain.ReportTemplate
	initOnce sync.Once
	initErr  error
}

// NewTemplateStore creates a file-based template store.
// If dir is empty, defaults to ~/.dossier/templates/.
func NewTemplateStore(dir string) (*TemplateStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(base, "templates")
	}

	return &TemplateStore{
		dir:   dir,
		cache: make(map[domain.ReportType]domain.ReportTemplate),
	}, nil
}

// Load returns the template for a report type. Unknown types, unreadable
// files and an uninitialised directory all resolve to the built-in template;
// only a file that exists but does not parse is reported as an error.
func (s *TemplateStore) Load(reportType domain.ReportType) (domain.ReportTemplate, error) {
	base := domain.DefaultReportTemplate(reportType)
	if !reportType.IsValid() {
		return base, nil
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return base, nil
	}

	s.mu.RLock()
	if tpl, ok := s.cache[reportType]; ok {
		s.mu.RUnlock()
		return tpl, nil
	}
	s.mu.RUnlock()

	tpl, err := s.loadFromFile(reportType)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("load template %q: %w", reportType, err)
	}
	tpl = tpl.Merge(base)

	// Double-check so concurrent loads agree on one value.
	s.mu.Lock()
	if cached, ok := s.cache[reportType]; ok {
		tpl = cached
	} else {
		s.cache[reportType] = tpl
	}
	s.mu.Unlock()

	return tpl, nil
}

// Reload clears the template cache, forcing fresh loads from disk.
func (s *TemplateStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[domain.ReportType]domain.ReportTemplate)
	s.mu.Unlock()
}

// Dir returns the template directory path.
func (s *TemplateStore) Dir() string {
	return s.dir
}

func (s *TemplateStore) path(reportType domain.ReportType) string {
	return filepath.Join(s.dir, string(reportType)+".toml")
}

// initialise creates the directory and writes the built-in templates
// that do not exist yet.
func (s *TemplateStore) initialise() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.initErr = fmt.Errorf("create template directory: %w", err)
		return
	}

	for _, rt := range domain.ReportTypes() {
		path := s.path(rt)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		data, err := toml.Marshal(domain.DefaultReportTemplate(rt))
		if err != nil {
			s.initErr = fmt.Errorf("encode default template %q: %w", rt, err)
			return
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			s.initErr = fmt.Errorf("create default template %q: %w", rt, err)
			return
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *TemplateStore) loadFromFile(reportType domain.ReportType) (domain.ReportTemplate, error) {
	data, err := os.ReadFile(s.path(reportType))
	if err != nil {
		return domain.ReportTemplate{}, err
	}
	var tpl domain.ReportTemplate
	if err := toml.Unmarshal(data, &tpl); err != nil {
		return domain.ReportTemplate{}, err
	}
	return tpl, nil
}

func (s *TemplateStore) createReadme() error {
	path := filepath.Join(s.dir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# Plantillas de informe

Cada archivo define cómo se redacta un tipo de informe:

- ` + "`executive.toml`" + ` - Informe ejecutivo
- ` + "`technical.toml`" + ` - Informe técnico
- ` + "`compliance.toml`" + ` - Informe de cumplimiento
- ` + "`financial.toml`" + ` - Informe financiero

## Campos

context, objective, style, tone, audience, structure (secciones en orden)
y queries (consultas de recuperación lanzadas antes de redactar).

Un campo omitido toma el valor predeterminado. Borra un archivo para
recuperar la plantilla original.
`
	return os.WriteFile(path, []byte(content), 0600)
}
