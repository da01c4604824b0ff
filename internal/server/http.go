package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AutoDreams/AutoDreams/internal/common/auth"
	"github.com/AutoDreams/AutoDreams/internal/common/config"
	"github.com/AutoDreams/AutoDreams/internal/common/logger"
	"github.com/AutoDreams/AutoDreams/internal/common/metrics"
	mw "github.com/AutoDreams/AutoDreams/internal/common/middleware"
	commonserver "github.com/AutoDreams/AutoDreams/internal/common/server"
	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/AutoDreams/AutoDreams/internal/ledger"
	"github.com/AutoDreams/AutoDreams/internal/review"
	"github.com/AutoDreams/AutoDreams/internal/stats"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Server 把四个领域服务拼装成对外的 HTTP API。
type Server struct {
	cfg     *config.Config
	log     logger.Logger
	cred    *credential.Service
	inv     *inventory.Service
	orders  *ledger.Service
	reviews *review.Service
	stats   *stats.Service

	limiter      mw.RateLimiter
	statsBreaker *mw.CircuitBreaker
}

func New(cfg *config.Config, log logger.Logger, db *gorm.DB) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		cred:    credential.NewService(db),
		inv:     inventory.NewService(db),
		orders:  ledger.NewService(db),
		reviews: review.NewService(db),
		stats:   stats.NewService(db),

		limiter:      mw.NewTokenBucket(200, 100),
		statsBreaker: mw.NewCircuitBreaker("stats", 5, 30*time.Second),
	}
}

// Router 组装路由与中间件链。链序与 gRPC 时代保持一致：
// Recovery -> Tracing -> AccessLog -> Metrics -> RateLimit。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(commonserver.Recovery(s.log))
	r.Use(commonserver.Tracing(s.cfg.Server.Name))
	r.Use(commonserver.AccessLog(s.log))
	r.Use(commonserver.Metrics())
	r.Use(commonserver.RateLimit(s.limiter))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// 登录后可用
		r.Group(func(r chi.Router) {
			r.Use(commonserver.JWTAuth(s.cfg.Auth, s.log))

			r.Get("/vehicles", s.handleListVehicles)
			r.Get("/vehicles/{id}", s.handleGetVehicle)

			r.Post("/orders", s.handlePlaceOrder)
			r.Get("/orders", s.handleListOwnOrders)

			r.Post("/reviews", s.handleAddReview)
			r.Get("/reviews", s.handleListOwnReviews)

			// 仅员工
			r.Group(func(r chi.Router) {
				r.Use(commonserver.RequireRole(s.cfg.Auth, credential.RoleEmployee))

				r.Post("/vehicles", s.handleAddVehicle)
				r.Put("/vehicles/{id}", s.handleUpdateVehicle)
				r.Delete("/vehicles/{id}", s.handleDeleteVehicle)
				r.Post("/vehicles/bulk", s.handleBulkAddVehicles)

				r.Get("/admin/orders", s.handleListAllOrders)
				r.Get("/admin/reviews", s.handleListAllReviews)
				r.Get("/admin/stats", s.handleStats)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func toUserView(u *credential.User) userView {
	return userView{
		ID: u.ID, Username: u.Username, Email: u.Email,
		Role: u.Role, FirstName: u.FirstName, LastName: u.LastName,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	u, err := s.cred.Register(r.Context(), credential.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(u))
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	User      userView `json:"user"`
	ClientID  string   `json:"client_id,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.cred.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ttl := time.Duration(s.cfg.Auth.TokenTTL) * time.Hour
	token, expiresAt, err := auth.GenerateAccessToken(s.cfg.Auth, u.ID, []string{u.Role}, ttl)
	if err != nil {
		s.log.Errorf("generate token for user %s: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := loginResponse{Token: token, ExpiresAt: expiresAt.Unix(), User: toUserView(u)}
	if u.Role == credential.RoleClient {
		c, err := s.cred.GetOrCreateClient(r.Context(), u.ID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		resp.ClientID = c.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

type vehicleView struct {
	ID      string `json:"id"`
	Brand   string `json:"brand"`
	Model   string `json:"model"`
	Year    int    `json:"year"`
	VIN     string `json:"vin"`
	Color   string `json:"color,omitempty"`
	Price   int64  `json:"price"`
	Status  string `json:"status"`
	Mileage int    `json:"mileage"`
}

func toVehicleView(v *inventory.Vehicle) vehicleView {
	return vehicleView{
		ID: v.ID, Brand: v.Brand, Model: v.Model, Year: v.Year,
		VIN: v.VIN, Color: v.Color, Price: v.Price,
		Status: string(v.Status), Mileage: v.Mileage,
	}
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	onlyAvailable, _ := strconv.ParseBool(r.URL.Query().Get("available"))
	vehicles, err := s.inv.List(r.Context(), inventory.Filter{OnlyAvailable: onlyAvailable})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	views := make([]vehicleView, 0, len(vehicles))
	for i := range vehicles {
		views = append(views, toVehicleView(&vehicles[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.inv.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleView(v))
}

type vehicleRequest struct {
	Brand   string `json:"brand"`
	Model   string `json:"model"`
	Year    int    `json:"year"`
	VIN     string `json:"vin"`
	Color   string `json:"color"`
	Price   int64  `json:"price"`
	Mileage int    `json:"mileage"`
}

func (s *Server) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := s.inv.Add(r.Context(), inventory.AddInput{
		Brand: req.Brand, Model: req.Model, Year: req.Year,
		VIN: req.VIN, Color: req.Color, Price: req.Price, Mileage: req.Mileage,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVehicleView(v))
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	err := s.inv.Update(r.Context(), id, inventory.UpdateInput{
		Brand: req.Brand, Model: req.Model, Year: req.Year,
		VIN: req.VIN, Color: req.Color, Price: req.Price, Mileage: req.Mileage,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	v, err := s.inv.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleView(v))
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := s.inv.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkAddRequest struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Quantity int    `json:"quantity"`
}

func (s *Server) handleBulkAddVehicles(w http.ResponseWriter, r *http.Request) {
	var req bulkAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inserted, err := s.inv.BulkAdd(r.Context(), req.Brand, req.Model, req.Quantity)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": inserted})
}

type placeOrderRequest struct {
	VehicleID  string `json:"vehicle_id"`
	FinalPrice int64  `json:"final_price"`
}

type orderView struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	VehicleID  string `json:"vehicle_id"`
	EmployeeID string `json:"employee_id"`
	SaleDate   string `json:"sale_date"`
	FinalPrice int64  `json:"final_price"`
	Status     string `json:"status"`
}

// handlePlaceOrder 买家下单。client 档案由 token 主体解析，
// final_price 缺省取车辆标价。
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	info, ok := commonserver.AuthFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.VehicleID) == "" {
		writeError(w, http.StatusBadRequest, "vehicle_id is required")
		return
	}

	c, err := s.cred.GetOrCreateClient(r.Context(), info.Subject)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	finalPrice := req.FinalPrice
	if finalPrice == 0 {
		v, err := s.inv.Get(r.Context(), req.VehicleID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		finalPrice = v.Price
	}

	employeeID, err := s.orders.ResolveEmployee(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	o, err := s.orders.PlaceOrder(r.Context(), ledger.PlaceOrderInput{
		ClientID:   c.ID,
		VehicleID:  req.VehicleID,
		EmployeeID: employeeID,
		FinalPrice: finalPrice,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView{
		ID: o.ID, ClientID: o.ClientID, VehicleID: o.VehicleID,
		EmployeeID: o.EmployeeID, SaleDate: o.SaleDate.Format(time.RFC3339),
		FinalPrice: o.FinalPrice, Status: o.Status,
	})
}

type orderSummaryView struct {
	OrderID    string `json:"order_id"`
	ClientID   string `json:"client_id"`
	VehicleID  string `json:"vehicle_id"`
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	VIN        string `json:"vin"`
	Color      string `json:"color,omitempty"`
	Year       int    `json:"year"`
	SaleDate   string `json:"sale_date"`
	FinalPrice int64  `json:"final_price"`
	Status     string `json:"status"`
	Employee   string `json:"employee,omitempty"`
}

func toOrderSummaryViews(summaries []ledger.Summary) []orderSummaryView {
	views := make([]orderSummaryView, 0, len(summaries))
	for _, sm := range summaries {
		views = append(views, orderSummaryView{
			OrderID: sm.OrderID, ClientID: sm.ClientID, VehicleID: sm.VehicleID,
			Brand: sm.Brand, Model: sm.Model, VIN: sm.VIN, Color: sm.Color,
			Year: sm.Year, SaleDate: sm.SaleDate.Format(time.RFC3339),
			FinalPrice: sm.FinalPrice, Status: sm.Status, Employee: sm.EmployeeName(),
		})
	}
	return views
}

func (s *Server) handleListOwnOrders(w http.ResponseWriter, r *http.Request) {
	info, ok := commonserver.AuthFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	c, err := s.cred.GetOrCreateClient(r.Context(), info.Subject)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	summaries, err := s.orders.ListForClient(r.Context(), c.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderSummaryViews(summaries))
}

func (s *Server) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.orders.ListAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderSummaryViews(summaries))
}

type addReviewRequest struct {
	OrderID string `json:"order_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewView struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	OrderID    string `json:"order_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	ReviewDate string `json:"review_date"`
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	info, ok := commonserver.AuthFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req addReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.cred.GetOrCreateClient(r.Context(), info.Subject)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	rv, err := s.reviews.Add(r.Context(), review.AddInput{
		ClientID: c.ID, OrderID: req.OrderID,
		Rating: req.Rating, Comment: req.Comment,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewView{
		ID: rv.ID, ClientID: rv.ClientID, OrderID: rv.OrderID,
		Rating: rv.Rating, Comment: rv.Comment,
		ReviewDate: rv.ReviewDate.Format(time.RFC3339),
	})
}

type reviewEntryView struct {
	ReviewID   string `json:"review_id"`
	ClientID   string `json:"client_id"`
	OrderID    string `json:"order_id"`
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	ReviewDate string `json:"review_date"`
}

func toReviewEntryViews(entries []review.Entry) []reviewEntryView {
	views := make([]reviewEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, reviewEntryView{
			ReviewID: e.ReviewID, ClientID: e.ClientID, OrderID: e.OrderID,
			Brand: e.Brand, Model: e.Model, Rating: e.Rating,
			Comment: e.Comment, ReviewDate: e.ReviewDate.Format(time.RFC3339),
		})
	}
	return views
}

func (s *Server) handleListOwnReviews(w http.ResponseWriter, r *http.Request) {
	info, ok := commonserver.AuthFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	c, err := s.cred.GetOrCreateClient(r.Context(), info.Subject)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	entries, err := s.reviews.ListForClient(r.Context(), c.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewEntryViews(entries))
}

func (s *Server) handleListAllReviews(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reviews.ListAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewEntryViews(entries))
}

// handleStats 统计面板走熔断器：聚合查询慢或库抖动时快速失败，
// 不拖垮正常下单链路。
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var snap *stats.Snapshot
	err := s.statsBreaker.Call(r.Context(), func() error {
		var err error
		snap, err = s.stats.Collect(r.Context())
		return err
	})
	if err != nil {
		if errors.Is(err, mw.ErrCircuitOpen) {
			writeError(w, http.StatusServiceUnavailable, "stats temporarily unavailable")
			return
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeDomainError 把领域哨兵错误翻译成 HTTP 状态码。
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, credential.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, credential.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, review.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, review.ErrForeignOrder):
		status = http.StatusForbidden
	case errors.Is(err, credential.ErrDuplicateIdentity),
		errors.Is(err, inventory.ErrDuplicateVIN),
		errors.Is(err, inventory.ErrVehicleOrdered),
		errors.Is(err, ledger.ErrVehicleUnavailable),
		errors.Is(err, review.ErrDuplicateReview):
		status = http.StatusConflict
	case errors.Is(err, inventory.ErrInvalidVIN),
		errors.Is(err, inventory.ErrInvalidVehicle),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, review.ErrInvalidRating):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.log.Errorf("request failed: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON 解析请求体；失败时已写好 400 响应，调用方直接 return。
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
