package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]interface{}{
			"requestid": requestID,
			"status":    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"message":   "Hello. Books store api is available. Enjoy :)",
		},
	); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send status response", zap.Error(err))
	}
}

// sendError writes the error envelope and logs when the write itself fails.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	errResp := NewAPIError(requestID, status, message, data)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send error response", zap.Error(err))
	}
}

// send writes a success response and logs when the write fails.
func (api *APIHandler) send(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := WriteResponse(r.Context(), w, status, data); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}

// decodeAndValidate reads the book payload and checks its constraints. It
// writes the 400 response itself and reports whether the handler can go on.
func (api *APIHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, book *Book, action string) bool {
	logger := api.GetLoggerFromContext(r.Context())
	if err := DecodeCreateOrUpdateBookRequestBody(w, r, book); err != nil {
		logger.Error("failed to "+action+" book", zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "failed to "+action+" the book", err.Error())
		return false
	}

	if err := api.validator.Validate(book); err != nil {
		logger.Error("failed to "+action+" book", zap.Error(err))
		var verr *ValidationError
		if errors.As(err, &verr) {
			api.sendError(w, r, http.StatusBadRequest, "failed to "+action+" the book", verr.Fields)
		} else {
			api.sendError(w, r, http.StatusBadRequest, "failed to "+action+" the book", err.Error())
		}
		return false
	}
	return true
}

// parseBookID extracts the book id path parameter. It writes the 400
// response itself and reports whether the handler can go on.
func (api *APIHandler) parseBookID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int64, bool) {
	raw := ps.ByName("id")
	id, err := ParseBookID(raw)
	if err != nil {
		api.GetLoggerFromContext(r.Context()).Error("book id provided is not valid", zap.String("book.id", raw), zap.Error(err))
		api.sendError(w, r, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		return 0, false
	}
	return id, true
}

// CreateBook godoc
// @Summary Create a book
// @Description Stores a new book. Any id sent in the payload is ignored.
// @Tags books
// @Accept json
// @Produce json
// @Param book body Book true "Book to create"
// @Success 201 {object} Book
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Router /api/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var book Book
	if !api.decodeAndValidate(w, r, &book, "create") {
		return
	}

	logger := api.GetLoggerFromContext(r.Context())
	created, err := api.bookService.Create(r.Context(), book)
	if err != nil {
		logger.Error("failed to create book", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to create the book", EmptyData)
		return
	}
	logger.Info("success to create book", zap.Int64("book.id", created.ID))
	api.send(w, r, http.StatusCreated, created)
}

// GetAllBooks godoc
// @Summary List books
// @Description Lists all books ordered by id. With the name query parameter it only lists books with that exact name.
// @Tags books
// @Produce json
// @Param name query string false "Exact book name"
// @Success 200 {array} Book
// @Failure 500 {object} APIError
// @Router /api/books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if q := r.URL.Query(); q.Has("name") {
		api.FindBooksByName(w, r, ps)
		return
	}

	logger := api.GetLoggerFromContext(r.Context())
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to get all books", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to get all books", EmptyData)
		return
	}
	logger.Info("success to get all books", zap.Int("books.total", len(books)))
	api.send(w, r, http.StatusOK, books)
}

// FindBooksByName serves the books listing filtered by exact name.
func (api *APIHandler) FindBooksByName(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	name := r.URL.Query().Get("name")
	logger := api.GetLoggerFromContext(r.Context()).With(zap.String("book.name", name))
	books, err := api.bookService.FindByName(r.Context(), name)
	if err != nil {
		logger.Error("failed to find books by name", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to find books by name", EmptyData)
		return
	}
	logger.Info("success to find books by name", zap.Int("books.total", len(books)))
	api.send(w, r, http.StatusOK, books)
}

// GetOneBook godoc
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path int true "Book id"
// @Success 200 {object} Book
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Router /api/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.parseBookID(w, r, ps)
	if !ok {
		return
	}

	logger := api.GetLoggerFromContext(r.Context()).With(zap.Int64("book.id", id))
	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist")
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to get book", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to get the book", EmptyData)
		return
	}
	logger.Info("success to get book")
	api.send(w, r, http.StatusOK, book)
}

// UpdateBook godoc
// @Summary Update a book
// @Description Replaces name, type and content of an existing book.
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book id"
// @Param book body Book true "New book values"
// @Success 200 {object} Book
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Router /api/books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.parseBookID(w, r, ps)
	if !ok {
		return
	}

	var book Book
	if !api.decodeAndValidate(w, r, &book, "update") {
		return
	}

	logger := api.GetLoggerFromContext(r.Context()).With(zap.Int64("book.id", id))
	updated, err := api.bookService.Update(r.Context(), id, book)
	if errors.Is(err, ErrBookNotFound) {
		logger.Error("book does not exist")
		api.sendError(w, r, http.StatusNotFound, "book does not exist", EmptyData)
		return
	}
	if err != nil {
		logger.Error("failed to update book", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to update the book", EmptyData)
		return
	}
	logger.Info("success to update book")
	api.send(w, r, http.StatusOK, updated)
}

// DeleteOneBook godoc
// @Summary Delete a book
// @Description Removes the book. Deleting an unknown id also succeeds.
// @Tags books
// @Param id path int true "Book id"
// @Success 204
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Router /api/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.parseBookID(w, r, ps)
	if !ok {
		return
	}

	logger := api.GetLoggerFromContext(r.Context()).With(zap.Int64("book.id", id))
	if err := api.bookService.Delete(r.Context(), id); err != nil {
		logger.Error("failed to delete book", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, "failed to delete the book", EmptyData)
		return
	}
	logger.Info("success to delete book")
	api.send(w, r, http.StatusNoContent, nil)
}
