package teardown

import (
	"context"
	"regexp"
	"strings"
)

// retryableMessages mark deletions blocked by a dependent resource that
// is still being removed.
var retryableMessages = []string{
	"in use",
	"being used",
	"dependencyviolation",
	"resourceinuse",
	"conflict",
	"is currently being",
	"inuseby",
}

var cannotDeleteInProgress = regexp.MustCompile(`(?is)cannotdelete.*in progress`)

// IsRetryable reports whether a failed deletion may succeed later.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return cannotDeleteInProgress.MatchString(msg)
}

// funcKind adapts a pair of functions to Kind.
type funcKind struct {
	name   string
	list   func(ctx context.Context) ([]Resource, error)
	delete func(ctx context.Context, r Resource) error
}

// NewKind builds a Kind from list and delete functions.
func NewKind(name string, list func(context.Context) ([]Resource, error), del func(context.Context, Resource) error) Kind {
	return &funcKind{name: name, list: list, delete: del}
}

func (k *funcKind) Name() string { return k.name }

func (k *funcKind) List(ctx context.Context) ([]Resource, error) { return k.list(ctx) }

func (k *funcKind) Delete(ctx context.Context, r Resource) error { return k.delete(ctx, r) }

// listOf converts provider items to resources.
func listOf[T any](items []T, err error, convert func(T) Resource) ([]Resource, error) {
	if err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(items))
	for _, it := range items {
		out = append(out, convert(it))
	}
	return out, nil
}
