// Feedback HTTP handlers.
//
// This file exposes the REST endpoints for ingredient-matching feedback:
//   - PUT  /feedback/{dish}/{ingredient}  (buffer one feedback signal)
//   - POST /feedback/{dish}/flush         (persist buffered feedback)
//
// Feedback is buffered in memory per restaurant and dish, and only written to
// the learned-relations store on flush, so a user can revise their answers
// while reviewing a dish without producing contradictory training rows.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/services"
)

// RecordFeedbackRequest is the JSON payload for one feedback signal.
//
// Kind must be one of the domain feedback kinds:
//   - confirmacion_automatica
//   - confirmacion_usuario
//   - correccion_usuario
//   - rechazo_usuario
//   - sugerencia_categoria
//
// ProductID is the confirmed or corrected product; for rejections it names
// the product being rejected. PreviousProductID is only meaningful for
// corrections, SuggestedCategory only for category suggestions.
type RecordFeedbackRequest struct {
	Kind              string `json:"kind" binding:"required" example:"confirmacion_usuario"`
	ProductID         string `json:"product_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	PreviousProductID string `json:"previous_product_id,omitempty" example:"fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"`
	SuggestedCategory string `json:"suggested_category,omitempty" example:"lacteos"`
}

// FlushFeedbackResponse reports how many buffered entries were persisted.
type FlushFeedbackResponse struct {
	Flushed int `json:"flushed"`
}

// MatchIngredientsRequest lists the ingredients of a dish to resolve against
// the catalog.
type MatchIngredientsRequest struct {
	Ingredients []string `json:"ingredients" binding:"required,min=1"`
}

// IngredientMatch is one resolved ingredient. Product is null when the
// cascade found nothing.
type IngredientMatch struct {
	Ingredient string                 `json:"ingredient"`
	Product    *domain.CatalogProduct `json:"product,omitempty"`
	Origin     string                 `json:"origin,omitempty"`
	Score      float64                `json:"score"`
}

// MatchIngredientsResponse carries the per-ingredient results of one dish.
type MatchIngredientsResponse struct {
	Dish    string            `json:"dish"`
	Matches []IngredientMatch `json:"matches"`
}

// RecordFeedback godoc
// @ID          recordFeedback
// @Summary     Record feedback for a dish ingredient
// @Description Buffers one confirmation, correction, or rejection of the product
// @Description matched for an ingredient. Nothing is persisted until the dish is
// @Description flushed.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       dish             path    string  true  "Dish name"        example(gazpacho)
// @Param       ingredient       path    string  true  "Ingredient name"  example(tomate%20pera)
// @Param       body             body    handlers.RecordFeedbackRequest  true  "Feedback payload"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Router      /feedback/{dish}/{ingredient} [put]
func (h *Handlers) RecordFeedback(c *gin.Context) {
	var req RecordFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind required")
		return
	}

	dish := strings.TrimSpace(c.Param("dish"))
	ingredient := strings.TrimSpace(c.Param("ingredient"))

	err := h.fbSvc.Record(restaurantID(c), dish, ingredient,
		domain.FeedbackKind(req.Kind), req.ProductID, req.PreviousProductID, req.SuggestedCategory)
	if err != nil {
		if errors.Is(err, services.ErrInvalidFeedback) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// MatchIngredients godoc
// @ID          matchIngredients
// @Summary     Match dish ingredients against the catalog
// @Description Runs the matching cascade for each ingredient without growing the
// @Description catalog, and pre-seeds an automatic confirmation in the feedback
// @Description buffer for every ingredient that matched, so an unreviewed dish
// @Description still contributes training signals on flush.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       dish             path    string  true  "Dish name"  example(gazpacho)
// @Param       body             body    handlers.MatchIngredientsRequest  true  "Ingredients to resolve"
//
// @Success     200  {object}  handlers.MatchIngredientsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid payload"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /feedback/{dish}/match [post]
func (h *Handlers) MatchIngredients(c *gin.Context) {
	var req MatchIngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ingredients required")
		return
	}

	ctx := c.Request.Context()
	rid := restaurantID(c)
	dish := strings.TrimSpace(c.Param("dish"))

	out := MatchIngredientsResponse{Dish: dish, Matches: make([]IngredientMatch, 0, len(req.Ingredients))}
	for _, raw := range req.Ingredients {
		ingredient := strings.TrimSpace(raw)
		if ingredient == "" {
			continue
		}
		m, err := h.catSvc.Lookup(ctx, rid, ingredient)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		im := IngredientMatch{Ingredient: ingredient}
		if m != nil && m.Product != nil {
			im.Product = m.Product
			im.Origin = string(m.Origin)
			im.Score = m.Score
			if err := h.fbSvc.SeedAutoConfirm(rid, dish, ingredient, m.Product.ID); err != nil {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
				return
			}
		}
		out.Matches = append(out.Matches, im)
	}
	ok(c, http.StatusOK, out)
}

// FlushFeedback godoc
// @ID          flushFeedback
// @Summary     Flush buffered feedback for a dish
// @Description Persists every buffered feedback entry of the dish in one
// @Description transaction and folds it into the learned ingredient relations.
// @Tags        Feedback
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       dish             path    string  true  "Dish name"  example(gazpacho)
//
// @Success     200  {object}  handlers.FlushFeedbackResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /feedback/{dish}/flush [post]
func (h *Handlers) FlushFeedback(c *gin.Context) {
	dish := strings.TrimSpace(c.Param("dish"))

	n, err := h.fbSvc.Flush(c.Request.Context(), restaurantID(c), dish)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, FlushFeedbackResponse{Flushed: n})
}
