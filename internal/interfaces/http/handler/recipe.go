package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	recipeapp "github.com/resepku/backend/internal/application/recipe"
	"github.com/resepku/backend/internal/infrastructure/storage"
	"github.com/resepku/backend/internal/interfaces/http/dto"
	"github.com/resepku/backend/internal/interfaces/http/middleware"
)

// ImageUploadRequest carries an image as a data URL
type ImageUploadRequest struct {
	Image string `json:"image" binding:"required"`
}

// RecipeHandler handles recipe-related HTTP requests
type RecipeHandler struct {
	BaseHandler
	recipes *recipeapp.Service
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(recipes *recipeapp.Service) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// List godoc
// @ID           listRecipes
// @Summary      List recipes
// @Description  All recipes, newest first
// @Tags         recipes
// @Produce      json
// @Success      200 {object} APIResponse[[]recipeapp.RecipeResponse]
// @Router       /recipes [get]
func (h *RecipeHandler) List(c *gin.Context) {
	recipes, err := h.recipes.ListAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, recipes, len(recipes))
}

// Search godoc
// @ID           searchRecipes
// @Summary      Search recipes
// @Description  Case-insensitive title match, optionally narrowed to one category
// @Tags         recipes
// @Produce      json
// @Param        q        query string false "Title substring"
// @Param        category query string false "Category"
// @Success      200 {object} APIResponse[[]recipeapp.RecipeResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /recipes/search [get]
func (h *RecipeHandler) Search(c *gin.Context) {
	var req recipeapp.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	recipes, err := h.recipes.Search(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, recipes, len(recipes))
}

// Get godoc
// @ID           getRecipe
// @Summary      Get recipe
// @Tags         recipes
// @Produce      json
// @Param        id path string true "Recipe ID" format(uuid)
// @Success      200 {object} APIResponse[recipeapp.RecipeResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /recipes/{id} [get]
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := h.PathID(c)
	if !ok {
		return
	}

	r, err := h.recipes.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// MyRecipes godoc
// @ID           listMyRecipes
// @Summary      List my recipes
// @Tags         recipes
// @Produce      json
// @Success      200 {object} APIResponse[[]recipeapp.RecipeResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/recipes [get]
func (h *RecipeHandler) MyRecipes(c *gin.Context) {
	recipes, err := h.recipes.ListByOwner(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, recipes, len(recipes))
}

// Stats godoc
// @ID           myRecipeStats
// @Summary      Recipe counts for the dashboard
// @Tags         recipes
// @Produce      json
// @Success      200 {object} APIResponse[recipeapp.OwnerStatsResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/recipes/stats [get]
func (h *RecipeHandler) Stats(c *gin.Context) {
	stats, err := h.recipes.OwnerStats(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Form godoc
// @ID           newRecipeForm
// @Summary      Blank recipe form
// @Description  Defaults and catalogues for the create page
// @Tags         recipes
// @Produce      json
// @Success      200 {object} APIResponse[recipeapp.FormResponse]
// @Router       /recipes/form [get]
func (h *RecipeHandler) Form(c *gin.Context) {
	h.Success(c, h.recipes.FormDefaults())
}

// EditForm godoc
// @ID           editRecipeForm
// @Summary      Pre-filled recipe form
// @Tags         recipes
// @Produce      json
// @Param        id path string true "Recipe ID" format(uuid)
// @Success      200 {object} APIResponse[recipeapp.FormResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recipes/{id}/form [get]
func (h *RecipeHandler) EditForm(c *gin.Context) {
	id, ok := h.PathID(c)
	if !ok {
		return
	}

	form, err := h.recipes.EditForm(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, form)
}

// Create godoc
// @ID           createRecipe
// @Summary      Create recipe
// @Description  The owner is always the authenticated caller
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Param        request body recipeapp.CreateRecipeRequest true "Recipe"
// @Success      201 {object} APIResponse[recipeapp.RecipeResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recipes [post]
func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipeapp.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	r, err := h.recipes.Create(c.Request.Context(), middleware.GetIdentity(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, r)
}

// Update godoc
// @ID           updateRecipe
// @Summary      Update recipe
// @Description  Partial update. Only the owner may update.
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Param        id      path string                          true "Recipe ID" format(uuid)
// @Param        request body recipeapp.UpdateRecipeRequest true "Changed fields"
// @Success      200 {object} APIResponse[recipeapp.RecipeResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recipes/{id} [patch]
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := h.PathID(c)
	if !ok {
		return
	}

	var req recipeapp.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	r, err := h.recipes.Update(c.Request.Context(), middleware.GetIdentity(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, r)
}

// Delete godoc
// @ID           deleteRecipe
// @Summary      Delete recipe
// @Tags         recipes
// @Param        id path string true "Recipe ID" format(uuid)
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recipes/{id} [delete]
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UploadImage godoc
// @ID           uploadRecipeImage
// @Summary      Upload recipe image
// @Description  Accepts a multipart "file" field or a JSON body with a data URL. Returns the value to store in a recipe's image field.
// @Tags         recipes
// @Accept       json,mpfd
// @Produce      json
// @Param        file formData file false "Image file"
// @Success      201 {object} APIResponse[recipeapp.ImageUploadResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /recipes/images [post]
func (h *RecipeHandler) UploadImage(c *gin.Context) {
	data, err := h.readImage(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.BindError(c, err)
			return
		}
		h.Error(c, dto.ErrCodeBadRequest, err.Error())
		return
	}

	resp, err := h.recipes.UploadImage(c.Request.Context(), middleware.GetIdentity(c), data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

var errNoImage = errors.New("expected a multipart file field or a JSON image data URL")

func (h *RecipeHandler) readImage(c *gin.Context) ([]byte, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, errNoImage
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errNoImage
	}
	_, data, err := storage.DecodeDataURL(req.Image)
	if err != nil {
		return nil, errors.New("image is not a valid base64 data URL")
	}
	return data, nil
}
