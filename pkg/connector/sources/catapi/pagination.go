package catapi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
)

const (
	// MaxPageSize is the largest page the API serves
	MaxPageSize = 100
	// DefaultOrder keeps image pages stable across calls
	DefaultOrder = "ASC"
)

// Table option keys
const (
	OptionLimit       = "limit"
	OptionBreedID     = "breed_id"
	OptionCategoryIDs = "category_ids"
	OptionSize        = "size"
	OptionMimeTypes   = "mime_types"
	OptionHasBreeds   = "has_breeds"
	OptionOrder       = "order"
	OptionSubID       = "sub_id"
)

// resolveLimit reads the page size option, falling back to MaxPageSize when
// absent or unparsable, and clamps it to [1, MaxPageSize].
func resolveLimit(options map[string]string) int {
	limit := MaxPageSize
	if raw, ok := options[OptionLimit]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// buildQuery assembles limit, page and the table's filters
func buildQuery(table Table, limit, page int, options map[string]string) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))

	switch table {
	case TableImages:
		order := options[OptionOrder]
		if order == "" {
			order = DefaultOrder
		}
		q.Set("order", order)
		for _, key := range []string{OptionBreedID, OptionCategoryIDs, OptionSize, OptionMimeTypes} {
			if v := options[key]; v != "" {
				q.Set(key, v)
			}
		}
		// presence alone decides, so "0" and "" are forwarded
		if v, ok := options[OptionHasBreeds]; ok {
			q.Set(OptionHasBreeds, v)
		}
	case TableVotes, TableFavourites:
		if v := options[OptionSubID]; v != "" {
			q.Set(OptionSubID, v)
		}
	}
	return q
}

// nextOffset applies the short-page rule: a page with fewer than limit
// records ends the table, and the caller gets back the offset it started
// from (or the current page when it started from nothing).
func nextOffset(start core.Offset, page, limit, count int) core.Offset {
	if count == 0 || count < limit {
		if !start.IsEmpty() {
			return start
		}
		return core.PageOffset{Page: page}.Encode()
	}
	return core.PageOffset{Page: page + 1}.Encode()
}
