package expertise

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DomainRecords is the record list of one domain.
type DomainRecords struct {
	Domain  string
	Records []Record
	Invalid []LineError
}

// Count returns the number of decoded records.
func (d DomainRecords) Count() int {
	return len(d.Records)
}

// LoadDomains reads several domains concurrently. The result preserves the
// order of domains. Reads never lock, so a concurrent writer is observed
// either before or after its rename.
func (s *Store) LoadDomains(ctx context.Context, domains []string) ([]DomainRecords, error) {
	out := make([]DomainRecords, len(domains))

	g, gCtx := errgroup.WithContext(ctx)
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			result, err := s.Read(domain)
			if err != nil {
				return err
			}
			out[i] = DomainRecords{Domain: domain, Records: result.Records, Invalid: result.Invalid}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Flatten returns every record of every domain in order.
func Flatten(domains []DomainRecords) []Record {
	var all []Record
	for _, d := range domains {
		all = append(all, d.Records...)
	}
	return all
}
