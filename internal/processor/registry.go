package processor

import (
	"fmt"
	"sort"
	"strings"

	"bikeman/internal/ixsi"
	apperrors "bikeman/pkg/errors"
)

// Registry maps request tags to their processors, one table per family.
// It is filled once at startup and only read afterwards, so lookups take no lock.
type Registry struct {
	static       map[ixsi.Tag]StaticProcessor
	user         map[ixsi.Tag]UserProcessor
	subscription map[ixsi.Tag]SubscriptionProcessor
}

func NewRegistry() *Registry {
	return &Registry{
		static:       make(map[ixsi.Tag]StaticProcessor),
		user:         make(map[ixsi.Tag]UserProcessor),
		subscription: make(map[ixsi.Tag]SubscriptionProcessor),
	}
}

// RegisterStatic adds p. Panics on a duplicate tag or a tag of another family.
func (r *Registry) RegisterStatic(p StaticProcessor) {
	r.checkNew(p.Tag(), ixsi.FamilyStatic)
	r.static[p.Tag()] = p
}

// RegisterUser adds p. Panics on a duplicate tag or a tag of another family.
func (r *Registry) RegisterUser(p UserProcessor) {
	r.checkNew(p.Tag(), ixsi.FamilyUserTriggered)
	r.user[p.Tag()] = p
}

// RegisterSubscription adds p. Panics on a duplicate tag or a tag of another family.
func (r *Registry) RegisterSubscription(p SubscriptionProcessor) {
	r.checkNew(p.Tag(), ixsi.FamilySubscription)
	r.subscription[p.Tag()] = p
}

func (r *Registry) checkNew(tag ixsi.Tag, family ixsi.Family) {
	if got := tag.Family(); got != family {
		panic(fmt.Sprintf("processor registry: tag %q belongs to family %s, not %s", tag, got, family))
	}
	if r.has(tag) {
		panic(fmt.Sprintf("processor registry: duplicate tag %q", tag))
	}
}

func (r *Registry) has(tag ixsi.Tag) bool {
	_, s := r.static[tag]
	_, u := r.user[tag]
	_, sub := r.subscription[tag]
	return s || u || sub
}

func (r *Registry) Static(tag ixsi.Tag) (StaticProcessor, error) {
	p, ok := r.static[tag]
	if !ok {
		return nil, missing(tag, ixsi.FamilyStatic)
	}
	return p, nil
}

func (r *Registry) User(tag ixsi.Tag) (UserProcessor, error) {
	p, ok := r.user[tag]
	if !ok {
		return nil, missing(tag, ixsi.FamilyUserTriggered)
	}
	return p, nil
}

func (r *Registry) Subscription(tag ixsi.Tag) (SubscriptionProcessor, error) {
	p, ok := r.subscription[tag]
	if !ok {
		return nil, missing(tag, ixsi.FamilySubscription)
	}
	return p, nil
}

func missing(tag ixsi.Tag, family ixsi.Family) error {
	return apperrors.ErrConfigurationFault.
		WithDetail("tag", string(tag)).
		WithDetail("family", family.String()).
		WithCause(fmt.Errorf("no %s processor registered for %q", family, tag))
}

// Validate reports every schema tag that has no processor.
func (r *Registry) Validate() error {
	var absent []string
	for _, tag := range ixsi.AllTags() {
		if !r.has(tag) {
			absent = append(absent, string(tag))
		}
	}
	if len(absent) > 0 {
		return apperrors.ErrConfigurationFault.
			WithDetail("missing", absent).
			WithCause(fmt.Errorf("no processor registered for %s", strings.Join(absent, ", ")))
	}
	return nil
}

// Tags returns the registered tags in sorted order.
func (r *Registry) Tags() []ixsi.Tag {
	out := make([]ixsi.Tag, 0, len(r.static)+len(r.user)+len(r.subscription))
	for tag := range r.static {
		out = append(out, tag)
	}
	for tag := range r.user {
		out = append(out, tag)
	}
	for tag := range r.subscription {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
