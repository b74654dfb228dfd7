package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sellerhub/internal/config"
	"sellerhub/internal/curation"
	"sellerhub/internal/hub"
	"sellerhub/internal/messaging"
	"sellerhub/internal/model"
	"sellerhub/internal/pkg/metrics"
	"sellerhub/internal/review"

	"github.com/gin-gonic/gin"
)

type mockFeedStore struct {
	homepageFunc   func(ctx context.Context, country string) (*curation.Feed, error)
	queryItemsFunc func(ctx context.Context, keyword, sellerEmail string, filters []curation.Filter) ([]curation.ItemDetails, error)
	itemByCodeFunc func(ctx context.Context, code string) (*curation.ItemDetails, error)
	homepageCalls  int
	queryCalls     int
}

func (m *mockFeedStore) HomepageFeed(ctx context.Context, country string) (*curation.Feed, error) {
	m.homepageCalls++
	return m.homepageFunc(ctx, country)
}

func (m *mockFeedStore) QueryItems(ctx context.Context, keyword, sellerEmail string, filters []curation.Filter) ([]curation.ItemDetails, error) {
	m.queryCalls++
	if m.queryItemsFunc != nil {
		return m.queryItemsFunc(ctx, keyword, sellerEmail, filters)
	}
	return []curation.ItemDetails{}, nil
}

func (m *mockFeedStore) ItemByCode(ctx context.Context, code string) (*curation.ItemDetails, error) {
	if m.itemByCodeFunc != nil {
		return m.itemByCodeFunc(ctx, code)
	}
	return nil, nil
}

func (m *mockFeedStore) Categories(ctx context.Context, parent string) ([]model.Category, error) {
	return []model.Category{}, nil
}

type mockReviewStore struct {
	addFunc  func(ctx context.Context, itemCode string, in review.Input) (*model.Review, error)
	listFunc func(ctx context.Context, itemCode string) ([]model.Review, error)
	addCalls int
}

func (m *mockReviewStore) Add(ctx context.Context, itemCode string, in review.Input) (*model.Review, error) {
	m.addCalls++
	return m.addFunc(ctx, itemCode, in)
}

func (m *mockReviewStore) List(ctx context.Context, itemCode string) ([]model.Review, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, itemCode)
	}
	return []model.Review{}, nil
}

type mockActivityStore struct {
	recordFunc     func(ctx context.Context, logType, itemCode, actor string, flag bool) (*model.LogEntry, error)
	countViewsFunc func(ctx context.Context, itemCode string) (int64, error)
	savedFunc      func(ctx context.Context, sellerEmail string) ([]string, error)
	recordCalls    int
	saveCalls      int
}

func (m *mockActivityStore) Record(ctx context.Context, logType, itemCode, actor string, flag bool) (*model.LogEntry, error) {
	m.recordCalls++
	if m.recordFunc != nil {
		return m.recordFunc(ctx, logType, itemCode, actor, flag)
	}
	return &model.LogEntry{}, nil
}

func (m *mockActivityStore) CountViews(ctx context.Context, itemCode string) (int64, error) {
	if m.countViewsFunc != nil {
		return m.countViewsFunc(ctx, itemCode)
	}
	return 0, nil
}

func (m *mockActivityStore) Save(ctx context.Context, itemCode, actor string) (*model.LogEntry, error) {
	m.saveCalls++
	return &model.LogEntry{}, nil
}

func (m *mockActivityStore) Unsave(ctx context.Context, itemCode, actor string) (*model.LogEntry, error) {
	return &model.LogEntry{}, nil
}

func (m *mockActivityStore) SavedItemCodes(ctx context.Context, sellerEmail string) ([]string, error) {
	if m.savedFunc != nil {
		return m.savedFunc(ctx, sellerEmail)
	}
	return []string{}, nil
}

func (m *mockActivityStore) AppendSellerActivity(ctx context.Context, sellerEmail, details string) (*model.ActivityEntry, error) {
	return &model.ActivityEntry{SellerID: 1, Details: details}, nil
}

type mockMessageStore struct {
	sendFunc    func(ctx context.Context, caller hub.Caller, from, to, content, itemCode string) (*model.Message, error)
	buyingFunc  func(ctx context.Context, sellerEmail string) ([]messaging.Thread, error)
	sendCalls   int
	buyingCalls int
}

func (m *mockMessageStore) ConversationPartners(ctx context.Context, sellerEmail string) ([]messaging.Partner, error) {
	return []messaging.Partner{}, nil
}

func (m *mockMessageStore) ListMessages(ctx context.Context, caller, counterpart, itemCode, order string, limit int) ([]model.Message, error) {
	return []model.Message{}, nil
}

func (m *mockMessageStore) BuyingThreads(ctx context.Context, sellerEmail string) ([]messaging.Thread, error) {
	m.buyingCalls++
	if m.buyingFunc != nil {
		return m.buyingFunc(ctx, sellerEmail)
	}
	return []messaging.Thread{}, nil
}

func (m *mockMessageStore) SellingThreads(ctx context.Context, sellerEmail string) ([]messaging.Thread, error) {
	return []messaging.Thread{}, nil
}

func (m *mockMessageStore) Send(ctx context.Context, caller hub.Caller, from, to, content, itemCode string) (*model.Message, error) {
	m.sendCalls++
	return m.sendFunc(ctx, caller, from, to, content, itemCode)
}

func newTestServer() *Server {
	metrics.InitMetrics()
	return &Server{
		cfg:    &config.Config{App: config.AppConfig{MessagePageLimit: 50}},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func asSeller(email string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Set("email", email)
		c.Set("role", "seller")
		handler(c)
	}
}

func TestAddReview_Created(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	var gotAuthor string
	store := &mockReviewStore{
		addFunc: func(ctx context.Context, itemCode string, in review.Input) (*model.Review, error) {
			gotAuthor = in.AuthorEmail
			return &model.Review{ItemCode: itemCode, AuthorEmail: in.AuthorEmail, Subject: in.Subject}, nil
		},
	}
	s.reviews = store

	r := gin.New()
	r.POST("/items/:code/reviews", asSeller("buyer@example.com", s.handleAddReview))

	payload, _ := json.Marshal(addReviewRequest{Subject: "great", Content: "works", Rating: 5})
	req := httptest.NewRequest(http.MethodPost, "/items/it-001/reviews", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if store.addCalls != 1 {
		t.Fatalf("expected add to be called once, got %d", store.addCalls)
	}
	if gotAuthor != "buyer@example.com" {
		t.Fatalf("expected author from session, got %q", gotAuthor)
	}
}

func TestAddReview_Duplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	store := &mockReviewStore{
		addFunc: func(ctx context.Context, itemCode string, in review.Input) (*model.Review, error) {
			return nil, hub.Duplicatef("cannot add more than 1 review for the user %s", in.AuthorEmail)
		},
	}
	s.reviews = store

	r := gin.New()
	r.POST("/items/:code/reviews", asSeller("buyer@example.com", s.handleAddReview))

	payload, _ := json.Marshal(addReviewRequest{Subject: "again"})
	req := httptest.NewRequest(http.MethodPost, "/items/it-001/reviews", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "buyer@example.com") {
		t.Fatalf("expected error to name the author, got %s", w.Body.String())
	}
}

func TestSendMessage_Impersonation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	store := &mockMessageStore{
		sendFunc: func(ctx context.Context, caller hub.Caller, from, to, content, itemCode string) (*model.Message, error) {
			if caller.Email != from && !caller.IsAdmin() {
				return nil, hub.Permissionf("cannot send message on behalf of %s", from)
			}
			return &model.Message{Sender: from, Receiver: to}, nil
		},
	}
	s.messages = store

	r := gin.New()
	r.POST("/messages", asSeller("eve@example.com", s.handleSendMessage))

	payload, _ := json.Marshal(sendMessageRequest{
		From:     "alice@example.com",
		To:       "bob@example.com",
		Content:  "hi",
		ItemCode: "it-001",
	})
	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if store.sendCalls != 1 {
		t.Fatalf("expected send to be attempted once, got %d", store.sendCalls)
	}
}

func TestHomepage_PassesCountry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	var gotCountry string
	s.feed = &mockFeedStore{
		homepageFunc: func(ctx context.Context, country string) (*curation.Feed, error) {
			gotCountry = country
			return &curation.Feed{
				ItemsByCountry:  []curation.ItemDetails{},
				ItemsWithImages: []curation.ItemDetails{},
				RandomItems:     []curation.ItemDetails{},
				CategoryItems:   []curation.ItemDetails{},
			}, nil
		},
	}

	r := gin.New()
	r.GET("/homepage", s.handleHomepage)

	req := httptest.NewRequest(http.MethodGet, "/homepage?country=India", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotCountry != "India" {
		t.Fatalf("expected country India, got %q", gotCountry)
	}
	if strings.Contains(w.Body.String(), "null") {
		t.Fatalf("expected all feed sections to be arrays, got %s", w.Body.String())
	}
}

func TestItemDetails_MissingIsNull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()
	s.feed = &mockFeedStore{}
	s.activityLog = &mockActivityStore{}

	r := gin.New()
	r.GET("/items/:code", s.handleItemDetails)

	req := httptest.NewRequest(http.MethodGet, "/items/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "null" {
		t.Fatalf("expected null body for missing item, got %s", w.Body.String())
	}
}

func TestItemDetails_IncludesViewCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()
	s.feed = &mockFeedStore{
		itemByCodeFunc: func(ctx context.Context, code string) (*curation.ItemDetails, error) {
			return &curation.ItemDetails{Code: code, ItemName: "Pump"}, nil
		},
	}
	s.activityLog = &mockActivityStore{
		countViewsFunc: func(ctx context.Context, itemCode string) (int64, error) { return 7, nil },
	}

	r := gin.New()
	r.GET("/items/:code", s.handleItemDetails)

	req := httptest.NewRequest(http.MethodGet, "/items/it-001", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got curation.ItemDetails
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.ViewCount != 7 {
		t.Fatalf("expected view_count 7, got %d", got.ViewCount)
	}
}

func TestSavedItems_EmptyDoesNotQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()
	feed := &mockFeedStore{}
	s.feed = feed
	s.activityLog = &mockActivityStore{}

	r := gin.New()
	r.GET("/saved-items", asSeller("seller@example.com", s.handleSavedItems))

	req := httptest.NewRequest(http.MethodGet, "/saved-items", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
	if feed.queryCalls != 0 {
		t.Fatalf("expected no item query for empty saved list, got %d", feed.queryCalls)
	}
}

func TestSavedItems_QueriesByCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	var gotFilters []curation.Filter
	s.feed = &mockFeedStore{
		queryItemsFunc: func(ctx context.Context, keyword, sellerEmail string, filters []curation.Filter) ([]curation.ItemDetails, error) {
			gotFilters = filters
			return []curation.ItemDetails{{Code: "it-001"}, {Code: "it-002"}}, nil
		},
	}
	s.activityLog = &mockActivityStore{
		savedFunc: func(ctx context.Context, sellerEmail string) ([]string, error) {
			return []string{"it-001", "it-002"}, nil
		},
	}

	r := gin.New()
	r.GET("/saved-items", asSeller("seller@example.com", s.handleSavedItems))

	req := httptest.NewRequest(http.MethodGet, "/saved-items", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(gotFilters) != 1 || gotFilters[0].Field != "code" || gotFilters[0].Op != curation.OpIn {
		t.Fatalf("expected a single in-set filter on code, got %+v", gotFilters)
	}
}

func TestRecordView_UsesSessionActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	var gotType, gotActor string
	store := &mockActivityStore{
		recordFunc: func(ctx context.Context, logType, itemCode, actor string, flag bool) (*model.LogEntry, error) {
			gotType = logType
			gotActor = actor
			return &model.LogEntry{Type: logType, ItemCode: itemCode, Actor: actor}, nil
		},
	}
	s.activityLog = store

	r := gin.New()
	r.POST("/items/:code/view", asSeller("viewer@example.com", s.handleRecordView))

	req := httptest.NewRequest(http.MethodPost, "/items/it-001/view", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotType != model.LogTypeItemView {
		t.Fatalf("expected log type %q, got %q", model.LogTypeItemView, gotType)
	}
	if gotActor != "viewer@example.com" {
		t.Fatalf("expected actor from session, got %q", gotActor)
	}
}

func TestQueryItems_InvalidFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()
	s.feed = &mockFeedStore{}

	r := gin.New()
	r.GET("/items", s.handleQueryItems)

	req := httptest.NewRequest(http.MethodGet, "/items?filters=not-json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSellerPageInfo_MissingParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	r := gin.New()
	r.GET("/sellers/page-info", s.handleSellerPageInfo)

	req := httptest.NewRequest(http.MethodGet, "/sellers/page-info", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func asUser(email, role string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Set("email", email)
		c.Set("role", role)
		handler(c)
	}
}

func TestBuyingThreads_OtherSellerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()
	store := &mockMessageStore{}
	s.messages = store

	r := gin.New()
	r.GET("/messages/buying", asSeller("eve@example.com", s.handleBuyingThreads))

	req := httptest.NewRequest(http.MethodGet, "/messages/buying?seller=alice@example.com", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if store.buyingCalls != 0 {
		t.Fatalf("expected no store call for forbidden request, got %d", store.buyingCalls)
	}
}

func TestBuyingThreads_AdminOnBehalf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	var gotSeller string
	store := &mockMessageStore{
		buyingFunc: func(ctx context.Context, sellerEmail string) ([]messaging.Thread, error) {
			gotSeller = sellerEmail
			return []messaging.Thread{}, nil
		},
	}
	s.messages = store

	r := gin.New()
	r.GET("/messages/buying", asUser("root@example.com", "admin", s.handleBuyingThreads))

	req := httptest.NewRequest(http.MethodGet, "/messages/buying?seller=alice@example.com", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotSeller != "alice@example.com" {
		t.Fatalf("expected admin to act for alice, got %q", gotSeller)
	}
}

func TestSellerProfile_OtherSellerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestServer()

	r := gin.New()
	r.GET("/sellers/profile", asSeller("eve@example.com", s.handleSellerProfile))

	req := httptest.NewRequest(http.MethodGet, "/sellers/profile?seller=alice@example.com", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}
