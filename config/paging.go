package config

// PagingConfig bounds the page sizes clients may request from list endpoints.
type PagingConfig struct {
	DefaultPageSize int `env:"PAGING_DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize     int `env:"PAGING_MAX_PAGE_SIZE"     envDefault:"200"`
}

// Sanitize applies guardrails to paging configuration values.
func (p *PagingConfig) Sanitize() {
	if p.MaxPageSize < 1 {
		p.MaxPageSize = 1
	}
	if p.MaxPageSize > 1000 {
		p.MaxPageSize = 1000
	}
	if p.DefaultPageSize < 1 {
		p.DefaultPageSize = 1
	}
	if p.DefaultPageSize > p.MaxPageSize {
		p.DefaultPageSize = p.MaxPageSize
	}
}
