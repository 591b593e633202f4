package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/httpx"
	"github.com/diewo77/seo-backoffice/internal/models"
	"github.com/diewo77/seo-backoffice/validation"
)

const clientPageSize = 20

type ClientHandler struct {
	base
}

func NewClientHandler(db *gorm.DB, log *zap.Logger, authz Authorizer) *ClientHandler {
	return &ClientHandler{base: newBase(db, log, authz)}
}

// ClientInput is the writable part of a client.
type ClientInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Website    string `json:"website"`
	Industry   string `json:"industry"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	VATNumber  string `json:"vat_number"`
	Notes      string `json:"notes"`
}

func (in *ClientInput) violations() validation.Violations {
	v := validation.Violations{}
	in.Name = strings.TrimSpace(in.Name)
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	in.Email = strings.TrimSpace(in.Email)
	validation.Email("email", in.Email, v)
	validation.MaxLen("website", in.Website, 500, v)
	validation.MaxLen("vat_number", in.VATNumber, 20, v)
	return v
}

func (in *ClientInput) apply(c *models.Client) {
	c.Name = in.Name
	c.Email = in.Email
	c.Phone = in.Phone
	c.Company = in.Company
	c.Website = in.Website
	c.Industry = in.Industry
	c.Address = in.Address
	c.City = in.City
	c.PostalCode = in.PostalCode
	c.Country = in.Country
	c.VATNumber = in.VATNumber
	c.Notes = in.Notes
}

// ClientPage is one page of the client list.
type ClientPage struct {
	Clients []models.Client `json:"clients"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// List answers GET /api/clients?q=&page=.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	db := h.DB.WithContext(r.Context()).Model(&models.Client{}).Where("user_id = ?", userID)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(company) LIKE ?", like, like)
	}
	db = db.Session(&gorm.Session{})

	out := ClientPage{Page: page, Limit: clientPageSize, Clients: []models.Client{}}
	if err := db.Count(&out.Total).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	if err := db.Order("name").Limit(clientPageSize).Offset((page - 1) * clientPageSize).Find(&out.Clients).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	var in ClientInput
	if !h.decode(w, r, &in) {
		return
	}
	if v := in.violations(); !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}
	client := models.Client{UserID: userID}
	in.apply(&client)
	if err := h.DB.WithContext(r.Context()).Create(&client).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var in ClientInput
	if !h.decode(w, r, &in) {
		return
	}
	if v := in.violations(); !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}
	in.apply(client)
	if err := h.DB.WithContext(r.Context()).Save(client).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete soft-deletes the client. Its documents keep their history.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.DB.WithContext(r.Context()).Delete(client).Error; err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *ClientHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Client, bool) {
	userID, ok := h.user(w, r)
	if !ok {
		return nil, false
	}
	id, ok := h.id(w, r)
	if !ok {
		return nil, false
	}
	client, err := ownedByUser[models.Client](r.Context(), h.DB, userID, id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !h.authorize(w, r, action, "client", client) {
		return nil, false
	}
	return client, true
}
