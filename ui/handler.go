package ui

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"busroute-scraper/models"
	"busroute-scraper/storage"
	"busroute-scraper/utils"
)

const noResultsMessage = "No buses found matching your criteria."

// Handler serves the search page and its JSON helpers.
type Handler struct {
	store      storage.RouteSearcher
	logger     *utils.Logger
	timeRanges []string
}

func NewHandler(store storage.RouteSearcher, logger *utils.Logger) *Handler {
	return &Handler{
		store:      store,
		logger:     logger,
		timeRanges: models.HalfHourRanges(),
	}
}

// SetupRoutes registers every UI endpoint on router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/", h.Index)
	router.GET("/search", h.Search)
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	{
		api.GET("/routes", h.Routes)
	}
}

type searchForm struct {
	Agency         string `form:"agency"`
	Route          string `form:"route"`
	Departure      string `form:"departure"`
	Arrival        string `form:"arrival"`
	MinSeats       string `form:"min_seats"`
	MinWindowSeats string `form:"min_window_seats"`
	MinPrice       string `form:"min_price"`
	MaxPrice       string `form:"max_price"`
	MinRating      string `form:"min_rating"`
}

// applyDefaults fills every unset field with the initial widget value.
func (f *searchForm) applyDefaults(b models.Bounds) {
	setDefault(&f.Departure, models.AnyTime)
	setDefault(&f.Arrival, models.AnyTime)
	setDefault(&f.MinSeats, "1")
	setDefault(&f.MinWindowSeats, "0")
	setDefault(&f.MinPrice, "0")
	setDefault(&f.MaxPrice, strconv.Itoa(b.MaxPrice))
	setDefault(&f.MinRating, "1.0")
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// filter converts the submitted values. Any malformed value is an error.
func (f *searchForm) filter() (models.SearchFilter, error) {
	filter := models.SearchFilter{RouteName: f.Route}

	var err error
	if filter.Departure, err = models.ParseTimeRange(f.Departure); err != nil {
		return filter, fmt.Errorf("departure: %w", err)
	}
	if filter.Arrival, err = models.ParseTimeRange(f.Arrival); err != nil {
		return filter, fmt.Errorf("arrival: %w", err)
	}
	if filter.MinSeats, err = optionalInt("min seats", f.MinSeats); err != nil {
		return filter, err
	}
	if filter.MinWindowSeats, err = optionalInt("min window seats", f.MinWindowSeats); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = optionalFloat("min price", f.MinPrice); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = optionalFloat("max price", f.MaxPrice); err != nil {
		return filter, err
	}
	if filter.MinRating, err = optionalFloat("min rating", f.MinRating); err != nil {
		return filter, err
	}
	return filter, nil
}

func optionalInt(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a whole number", name, raw)
	}
	return &v, nil
}

func optionalFloat(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number", name, raw)
	}
	return &v, nil
}

type resultPanel struct {
	Title string
	Route *models.BusRoute
}

type pageData struct {
	Agencies       []string
	Routes         []models.RouteChoice
	TimeRanges     []string
	Bounds         models.Bounds
	MaxWindowSeats int
	PriceStep      int
	Form           searchForm
	Results        []resultPanel
	Warning        string
	Error          string
}

// page loads the selector contents. Store failures become the error banner.
func (h *Handler) page(ctx context.Context, form searchForm) *pageData {
	data := &pageData{TimeRanges: h.timeRanges, PriceStep: models.PriceStep}

	agencies, err := h.store.Agencies(ctx)
	if err != nil {
		h.logger.Error("[ui] Loading agencies: %v", err)
		data.Error = err.Error()
	}
	data.Agencies = agencies

	bounds, err := h.store.Bounds(ctx)
	if err != nil {
		h.logger.Warn("[ui] Loading bounds, using defaults: %v", err)
		bounds = models.DefaultBounds
	}
	bounds.MaxPrice = models.PriceCeiling(float64(bounds.MaxPrice))
	data.Bounds = bounds
	data.MaxWindowSeats = bounds.MaxSeats / 2

	if form.Agency == "" && len(agencies) > 0 {
		form.Agency = agencies[0]
	}
	if form.Agency != "" {
		routes, err := h.store.RoutesForAgency(ctx, form.Agency)
		if err != nil {
			h.logger.Error("[ui] Loading routes for %s: %v", form.Agency, err)
			data.Error = err.Error()
		}
		data.Routes = routes
	}

	form.applyDefaults(bounds)
	data.Form = form
	return data
}

// Index renders the empty search form.
func (h *Handler) Index(c *gin.Context) {
	var form searchForm
	if err := c.ShouldBindQuery(&form); err != nil {
		h.logger.Warn("[ui] Ignoring malformed query: %v", err)
	}
	c.HTML(http.StatusOK, "index.html", h.page(c.Request.Context(), form))
}

// Search runs the submitted filter. Failures are rendered as a banner on a
// normal page.
func (h *Handler) Search(c *gin.Context) {
	var form searchForm
	if err := c.ShouldBindQuery(&form); err != nil {
		h.logger.Warn("[ui] Ignoring malformed query: %v", err)
	}

	ctx := c.Request.Context()
	data := h.page(ctx, form)

	filter, err := data.Form.filter()
	if err != nil {
		data.Error = err.Error()
		c.HTML(http.StatusOK, "index.html", data)
		return
	}

	routes, err := h.store.Search(ctx, filter)
	if err != nil {
		h.logger.Error("[ui] Search failed: %v", err)
		data.Error = err.Error()
		c.HTML(http.StatusOK, "index.html", data)
		return
	}

	h.logger.Info("[ui] Search returned %d buses", len(routes))
	if len(routes) == 0 {
		data.Warning = noResultsMessage
	}
	for _, r := range routes {
		display := models.StripAgency(r.RouteName, models.AgencyOf(r.RouteName))
		data.Results = append(data.Results, resultPanel{
			Title: display + " - " + r.BusName,
			Route: r,
		})
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// Routes returns the route choices of one agency as JSON.
func (h *Handler) Routes(c *gin.Context) {
	agency := strings.TrimSpace(c.Query("agency"))
	if agency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agency is required"})
		return
	}

	routes, err := h.store.RoutesForAgency(c.Request.Context(), agency)
	if err != nil {
		h.logger.Error("[ui] Loading routes for %s: %v", agency, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get routes"})
		return
	}
	if routes == nil {
		routes = []models.RouteChoice{}
	}
	c.JSON(http.StatusOK, routes)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
