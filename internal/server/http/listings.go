package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/grader-market/internal/catalog"
	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
)

const (
	clientHeader    = "X-Client-Id"
	clientCookie    = "gm_client"
	maxJSONBody     = 1 << 20
	maxSearchLimit  = 50
	defaultSearchN  = 10
	maxClientIDSize = 64
)

// multi splits repeated and comma-separated query values.
func multi(q map[string][]string, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// parseQuery turns URL query parameters into a catalog query.
func parseQuery(r *http.Request) (model.Query, error) {
	q := r.URL.Query()
	ve := errs.NewValidation()
	var out model.Query

	out.Filter.Brands = multi(q, "brand")
	out.Filter.Categories = multi(q, "category")
	for _, c := range multi(q, "country") {
		v, err := catalog.ParseCountry(c)
		if err != nil {
			ve.Add("country", "must be one of EU, Kenya, US")
			continue
		}
		out.Filter.Countries = append(out.Filter.Countries, v)
	}
	for _, s := range multi(q, "status") {
		v, err := catalog.ParseStatus(s)
		if err != nil {
			ve.Add("status", "must be for-sale or sold")
			continue
		}
		out.Filter.Statuses = append(out.Filter.Statuses, v)
	}
	for _, k := range multi(q, "kind") {
		v, err := catalog.ParseKind(k)
		if err != nil {
			ve.Add("kind", "must be grader or part")
			continue
		}
		out.Filter.Kinds = append(out.Filter.Kinds, v)
	}
	for key, dst := range map[string]*int64{"min_price": &out.Filter.Price.Min, "max_price": &out.Filter.Price.Max} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ve.Add(key, "must be an integer")
			continue
		}
		*dst = n
	}
	sk, err := catalog.ParseSortKey(q.Get("sort"))
	if err != nil {
		ve.Add("sort", "must be one of newest, oldest, price-low, price-high")
	}
	out.Sort = sk
	out.Text = q.Get("q")
	return out, ve.OrNil()
}

func listingID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		ve := errs.NewValidation()
		ve.Add("id", "must be a UUID")
		return uuid.Nil, ve
	}
	return id, nil
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil(ls []model.Listing) []model.Listing {
	if ls == nil {
		return []model.Listing{}
	}
	return ls
}

func (s *Server) queryListings(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.listings.Query(q)))
}

func (s *Server) searchListings(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ve := errs.NewValidation()
			ve.Add("limit", "must be a positive integer")
			s.fail(w, r, ve)
			return
		}
		limit = min(n, maxSearchLimit)
	}
	writeJSON(w, http.StatusOK, nonNil(s.listings.Search(r.URL.Query().Get("q"), limit)))
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.listings.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// clientID identifies an anonymous browser session.
func clientID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(clientHeader)); v != "" && len(v) <= maxClientIDSize {
		return v
	}
	if c, err := r.Cookie(clientCookie); err == nil && c.Value != "" && len(c.Value) <= maxClientIDSize {
		return c.Value
	}
	return ""
}

// ensureClientID returns the caller's id, issuing a cookie for new clients.
func ensureClientID(w http.ResponseWriter, r *http.Request) string {
	if id := clientID(r); id != "" {
		return id
	}
	id := uuid.Must(uuid.NewV4()).String()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) favorites(w http.ResponseWriter, r *http.Request) {
	owner := clientID(r)
	if owner == "" {
		writeJSON(w, http.StatusOK, []model.Listing{})
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.listings.Favorites(owner)))
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner := ensureClientID(w, r)
	on, err := s.listings.ToggleFavorite(r.Context(), owner, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": on})
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		ve := errs.NewValidation()
		ve.Add("body", "malformed JSON")
		return ve
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		ve := errs.NewValidation()
		ve.Add("body", "must contain a single JSON object")
		return ve
	}
	return nil
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	var l model.Listing
	if err := decodeJSON(w, r, &l); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.listings.Create(r.Context(), l)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "listing created", out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var l model.Listing
	if err := decodeJSON(w, r, &l); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.listings.Update(r.Context(), id, l)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "listing updated", id)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.listings.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "listing deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		ve := errs.NewValidation()
		ve.Add("file", "multipart form with a file field is required")
		s.fail(w, r, ve)
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		ve := errs.NewValidation()
		ve.Add("file", "is required")
		s.fail(w, r, ve)
		return
	}
	defer f.Close()
	if hdr.Size > s.maxUpload {
		ve := errs.NewValidation()
		ve.Add("file", "is too large")
		s.fail(w, r, ve)
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	out, err := s.listings.AttachImage(r.Context(), id, hdr.Filename, ct, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.audit(r, "listing image attached", id)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) audit(r *http.Request, msg string, listing uuid.UUID) {
	admin, _ := AdminIDFromCtx(r.Context())
	s.log.Info(msg,
		zap.String("admin", admin.String()),
		zap.String("listing", listing.String()),
		zap.String("requestID", RequestIDFromCtx(r.Context())))
}
