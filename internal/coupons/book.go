package coupons

import "context"

// Source resolves a coupon code to its percentage.
type Source interface {
	Lookup(ctx context.Context, code string) (percentOff int, found bool, err error)
}

// Book consults each source in order and returns the first match.
type Book struct {
	sources []Source
}

// NewBook chains sources; nil entries are skipped.
func NewBook(sources ...Source) *Book {
	book := &Book{}
	for _, s := range sources {
		if s != nil {
			book.sources = append(book.sources, s)
		}
	}
	return book
}

func (b *Book) Lookup(ctx context.Context, code string) (int, bool, error) {
	code = normalize(code)
	if code == "" {
		return 0, false, nil
	}
	for _, s := range b.sources {
		pct, found, err := s.Lookup(ctx, code)
		if err != nil {
			return 0, false, err
		}
		if found {
			return pct, true, nil
		}
	}
	return 0, false, nil
}
