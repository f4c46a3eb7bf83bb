package service

import (
	"context"
	"strings"
	"time"

	"github.com/and161185/grader-market/internal/catalog"
	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/events"
	"github.com/and161185/grader-market/internal/metrics"
	"github.com/and161185/grader-market/internal/model"
	"github.com/and161185/grader-market/internal/store"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// MinYear is the oldest accepted grader model year.
const MinYear = 1950

// ListingService defines catalog reads, admin mutations and favorites.
type ListingService interface {
	Create(ctx context.Context, l model.Listing) (model.Listing, error)
	Update(ctx context.Context, id uuid.UUID, l model.Listing) (model.Listing, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(id uuid.UUID) (model.Listing, error)
	Query(q model.Query) []model.Listing
	Search(text string, limit int) []model.Listing
	All() []model.Listing
	ToggleFavorite(ctx context.Context, owner string, id uuid.UUID) (bool, error)
	Favorites(owner string) []model.Listing
	AttachImage(ctx context.Context, id uuid.UUID, fileName, contentType string, data []byte) (model.Listing, error)
}

// ListingStore is the state container the service mutates. Implemented by *store.Store.
type ListingStore interface {
	Snapshot() store.State
	Get(id uuid.UUID) (model.Listing, bool)
	Add(ctx context.Context, l model.Listing) error
	Update(ctx context.Context, l model.Listing) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*model.Listing)) (model.Listing, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleFavorite(ctx context.Context, owner string, id uuid.UUID) (bool, error)
}

// ImageUploader stores image bytes and returns a public URL.
type ImageUploader interface {
	Upload(ctx context.Context, listingID uuid.UUID, fileName, contentType string, data []byte) (string, error)
}

type ListingServiceImpl struct {
	st     ListingStore
	pub    events.Publisher
	images ImageUploader // nil disables uploads
	m      *metrics.Metrics
	log    *zap.Logger
	now    func() time.Time
}

// NewListingService wires the service. images and m may be nil.
func NewListingService(st ListingStore, pub events.Publisher, images ImageUploader, m *metrics.Metrics, log *zap.Logger) *ListingServiceImpl {
	return &ListingServiceImpl{st: st, pub: pub, images: images, m: m, log: log.Named("listings"), now: time.Now}
}

// Validate checks the listing fields an admin form submits.
func Validate(l model.Listing, now time.Time) error {
	v := errs.NewValidation()
	if strings.TrimSpace(l.Title) == "" {
		v.Add("title", "required")
	}
	if strings.TrimSpace(l.Brand) == "" {
		v.Add("brand", "required")
	}
	if strings.TrimSpace(l.Model) == "" {
		v.Add("model", "required")
	}
	if l.Price <= 0 {
		v.Add("price", "must be greater than 0")
	}
	if len(l.Images) == 0 {
		v.Add("images", "at least one image is required")
	}
	for _, u := range l.Images {
		if strings.TrimSpace(u) == "" {
			v.Add("images", "image URL must not be blank")
		}
	}
	switch l.StockCountry {
	case model.CountryEU, model.CountryKenya, model.CountryUS:
	default:
		v.Add("stockCountry", "must be one of EU, Kenya, US")
	}
	switch l.Kind {
	case model.KindGrader:
		if l.Year < MinYear || l.Year > now.Year()+1 {
			v.Add("year", "out of range")
		}
	case model.KindPart:
		if strings.TrimSpace(l.PartNumber) == "" {
			v.Add("partNumber", "required for parts")
		}
	default:
		v.Add("kind", "must be grader or part")
	}
	return v.OrNil()
}

func clean(l model.Listing) model.Listing {
	l.Title = strings.TrimSpace(l.Title)
	l.Brand = strings.TrimSpace(l.Brand)
	l.Model = strings.TrimSpace(l.Model)
	l.PartNumber = strings.TrimSpace(l.PartNumber)
	return l
}

// Create validates l, assigns an id and listing time, and stores it.
func (s *ListingServiceImpl) Create(ctx context.Context, l model.Listing) (model.Listing, error) {
	l = clean(l)
	if err := Validate(l, s.now()); err != nil {
		return model.Listing{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Listing{}, err
	}
	l.ID = id
	if l.ListedAt.IsZero() {
		l.ListedAt = s.now().UTC()
	}
	if err = s.st.Add(ctx, l); err != nil {
		return model.Listing{}, err
	}
	s.written(ctx, "create", events.SubjectListingCreated, l)
	return l, nil
}

// Update replaces listing id with l. The listing time is kept unless l sets one.
func (s *ListingServiceImpl) Update(ctx context.Context, id uuid.UUID, l model.Listing) (model.Listing, error) {
	cur, ok := s.st.Get(id)
	if !ok {
		return model.Listing{}, errs.ErrNotFound
	}
	l = clean(l)
	if err := Validate(l, s.now()); err != nil {
		return model.Listing{}, err
	}
	l.ID = id
	if l.ListedAt.IsZero() {
		l.ListedAt = cur.ListedAt
	}
	if err := s.st.Update(ctx, l); err != nil {
		return model.Listing{}, err
	}
	s.written(ctx, "update", events.SubjectListingUpdated, l)
	return l, nil
}

// Delete removes a listing. Deleting a missing id succeeds without an event.
func (s *ListingServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	_, existed := s.st.Get(id)
	if err := s.st.Delete(ctx, id); err != nil {
		return err
	}
	if existed {
		s.written(ctx, "delete", events.SubjectListingDeleted, events.ListingDeleted{ID: id})
	}
	return nil
}

func (s *ListingServiceImpl) written(ctx context.Context, op, subject string, payload any) {
	if s.m != nil {
		s.m.ListingWrites.WithLabelValues(op).Inc()
	}
	if err := s.pub.Publish(ctx, subject, payload); err != nil {
		s.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Get returns a listing or errs.ErrNotFound.
func (s *ListingServiceImpl) Get(id uuid.UUID) (model.Listing, error) {
	l, ok := s.st.Get(id)
	if !ok {
		return model.Listing{}, errs.ErrNotFound
	}
	return l, nil
}

// Query filters and sorts the catalog.
func (s *ListingServiceImpl) Query(q model.Query) []model.Listing {
	return catalog.Apply(s.st.Snapshot().Listings, q)
}

// Search runs the ranked text search.
func (s *ListingServiceImpl) Search(text string, limit int) []model.Listing {
	return catalog.Search(s.st.Snapshot().Listings, text, limit)
}

// All returns the catalog in collection order.
func (s *ListingServiceImpl) All() []model.Listing {
	return s.st.Snapshot().Listings
}

// ToggleFavorite flips a favorite of the client session owner.
func (s *ListingServiceImpl) ToggleFavorite(ctx context.Context, owner string, id uuid.UUID) (bool, error) {
	if strings.TrimSpace(owner) == "" {
		v := errs.NewValidation()
		v.Add("clientId", "required")
		return false, v
	}
	return s.st.ToggleFavorite(ctx, owner, id)
}

// Favorites resolves the favorite listings of owner.
func (s *ListingServiceImpl) Favorites(owner string) []model.Listing {
	return s.st.Snapshot().FavoriteListings(owner)
}

// AttachImage uploads an image and appends its URL to the listing.
func (s *ListingServiceImpl) AttachImage(ctx context.Context, id uuid.UUID, fileName, contentType string, data []byte) (model.Listing, error) {
	if s.images == nil {
		return model.Listing{}, errs.ErrUnavailable
	}
	if len(data) == 0 {
		v := errs.NewValidation()
		v.Add("image", "empty file")
		return model.Listing{}, v
	}
	if !strings.HasPrefix(contentType, "image/") {
		v := errs.NewValidation()
		v.Add("image", "must be an image")
		return model.Listing{}, v
	}
	if _, ok := s.st.Get(id); !ok {
		return model.Listing{}, errs.ErrNotFound
	}
	url, err := s.images.Upload(ctx, id, fileName, contentType, data)
	if err != nil {
		return model.Listing{}, err
	}
	// the upload can be slow; append to whatever the listing looks like now
	cur, err := s.st.Mutate(ctx, id, func(l *model.Listing) {
		l.Images = append(append([]string(nil), l.Images...), url)
	})
	if err != nil {
		return model.Listing{}, err
	}
	s.written(ctx, "update", events.SubjectListingUpdated, cur)
	return cur, nil
}
