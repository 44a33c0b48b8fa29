package handlers

import (
	"errors"
	"net/http"

	"github.com/docgate/docgate/internal/gateway"
	"github.com/docgate/docgate/internal/identity"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// CollectionsHandler exposes the document gateway over HTTP. All routes are
// expected to sit behind the auth middleware; the acting identity is read
// from the request context for metadata attribution.
type CollectionsHandler struct {
	gw gateway.Gateway
}

func NewCollectionsHandler(gw gateway.Gateway) *CollectionsHandler {
	return &CollectionsHandler{gw: gw}
}

// Register mounts the collection and document routes on rg.
func (h *CollectionsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/collections", h.ListCollections)
	rg.POST("/collections", h.CreateCollection)

	d := rg.Group("/collections/:collection/documents")
	d.POST("", h.Insert)
	d.POST("/search", h.Search)
	d.POST("/delete", h.DeleteByFilter)
	d.GET("/:id", h.Get)
	d.PATCH("/:id", h.Update)
	d.DELETE("/:id", h.Delete)
}

// SearchRequest is the body accepted by the search and delete-by-filter
// endpoints. An absent filter means "match all".
type SearchRequest struct {
	Filter     map[string]interface{} `json:"filter"`
	Projection map[string]interface{} `json:"projection"`
	Sort       map[string]interface{} `json:"sort"`
	Limit      int64                  `json:"limit"`
	Skip       int64                  `json:"skip"`
}

func (h *CollectionsHandler) ListCollections(c *gin.Context) {
	names, err := h.gw.ListCollections(c.Request.Context())
	if err != nil {
		respondGatewayError(c, "list_collections", err)
		return
	}
	count("list_collections", "ok")
	c.JSON(http.StatusOK, gin.H{"collections": names})
}

func (h *CollectionsHandler) CreateCollection(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.gw.CreateCollection(c.Request.Context(), req.Name)
	if errors.Is(err, gateway.ErrAlreadyExists) {
		// idempotent: report without modification
		count("create_collection", "exists")
		c.JSON(http.StatusOK, gin.H{"message": "collection already exists", "name": req.Name})
		return
	}
	if err != nil {
		respondGatewayError(c, "create_collection", err)
		return
	}
	count("create_collection", "ok")
	c.JSON(http.StatusCreated, gin.H{"message": "collection created", "name": req.Name})
}

func (h *CollectionsHandler) Insert(c *gin.Context) {
	var doc map[string]interface{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}
	id, err := h.gw.Insert(c.Request.Context(), identity.FromContext(c), c.Param("collection"), bson.M(doc))
	if err != nil {
		respondGatewayError(c, "insert", err)
		return
	}
	count("insert", "ok")
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *CollectionsHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docs, err := h.gw.Find(c.Request.Context(), c.Param("collection"), bson.M(req.Filter), gateway.FindOptions{
		Projection: normalizeDirections(req.Projection),
		Sort:       normalizeDirections(req.Sort),
		Skip:       req.Skip,
		Limit:      req.Limit,
	})
	if err != nil {
		respondGatewayError(c, "search", err)
		return
	}
	count("search", "ok")
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (h *CollectionsHandler) Get(c *gin.Context) {
	doc, err := h.gw.GetByID(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		respondGatewayError(c, "get", err)
		return
	}
	count("get", "ok")
	c.JSON(http.StatusOK, doc)
}

func (h *CollectionsHandler) Update(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}
	doc, err := h.gw.UpdateByID(c.Request.Context(), identity.FromContext(c), c.Param("collection"), c.Param("id"), bson.M(fields))
	if err != nil {
		respondGatewayError(c, "update", err)
		return
	}
	count("update", "ok")
	c.JSON(http.StatusOK, doc)
}

func (h *CollectionsHandler) Delete(c *gin.Context) {
	err := h.gw.SoftDeleteByID(c.Request.Context(), identity.FromContext(c), c.Param("collection"), c.Param("id"))
	if err != nil {
		respondGatewayError(c, "delete", err)
		return
	}
	count("delete", "ok")
	metrics.SoftDeletedDocuments.Inc()
	c.Status(http.StatusNoContent)
}

func (h *CollectionsHandler) DeleteByFilter(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.gw.SoftDeleteByFilter(c.Request.Context(), identity.FromContext(c), c.Param("collection"), bson.M(req.Filter))
	if err != nil {
		respondGatewayError(c, "delete_by_filter", err)
		return
	}
	count("delete_by_filter", "ok")
	metrics.SoftDeletedDocuments.Add(float64(n))
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func count(op, outcome string) {
	metrics.GatewayOps.WithLabelValues(op, outcome).Inc()
}

// respondGatewayError maps typed gateway outcomes to response codes. A
// not-found answer is deliberately identical for missing and soft-deleted
// documents.
func respondGatewayError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		count(op, "not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, gateway.ErrInvalidID):
		count(op, "client_error")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
	case errors.Is(err, gateway.ErrInvalidName):
		count(op, "client_error")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection name"})
	default:
		count(op, "error")
		logger.Errorf("gateway %s failed: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store operation failed"})
	}
}

// normalizeDirections converts JSON numbers (decoded as float64) in sort and
// projection maps to ints so the store sees canonical 1/-1/0 markers.
func normalizeDirections(m map[string]interface{}) bson.M {
	if len(m) == 0 {
		return nil
	}
	out := make(bson.M, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok {
			out[k] = int(f)
			continue
		}
		out[k] = v
	}
	return out
}
