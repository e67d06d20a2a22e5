package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Subby02/web-project/internal/domain"
)

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleListCart(w http.ResponseWriter, r *http.Request) {
	lines, err := a.service.ListCart(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (a *API) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req domain.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	line, created, err := a.service.AddToCart(r.Context(), actorFrom(r).UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, line)
}

func (a *API) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	line, err := a.service.SetQuantity(r.Context(), actorFrom(r).UserID, mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (a *API) handleAdjustLine(w http.ResponseWriter, r *http.Request) {
	var req domain.AdjustCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lineID := mux.Vars(r)["id"]
	line, removed, err := a.service.AdjustLine(r.Context(), actorFrom(r).UserID, lineID, req.Delta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if removed {
		writeJSON(w, http.StatusOK, map[string]any{"id": lineID, "removed": true})
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (a *API) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	if err := a.service.RemoveLine(r.Context(), actorFrom(r).UserID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "removed from cart"})
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	removed, err := a.service.ClearCart(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "cart cleared", "removed": removed})
}

func (a *API) handleCartCount(w http.ResponseWriter, r *http.Request) {
	count, err := a.service.CartCount(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.CartCountResponse{Count: count})
}

func (a *API) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.PlaceOrderRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	orders, err := a.service.PlaceOrder(r.Context(), actorFrom(r).UserID, req.Items)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.PlaceOrderResponse{Message: "order placed", Orders: orders})
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.service.ListOrders(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.GetOrder(r.Context(), actorFrom(r).UserID, mux.Vars(r)["orderId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))

	report, err := a.service.SalesReport(r.Context(), query.Get("start"), query.Get("end"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch format {
	case "csv":
		body, err := salesReportToCSV(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-%s-%s.csv\"", report.Range.Start, report.Range.End))
		_, _ = w.Write(body)
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func (a *API) handleUpdateDiscount(w http.ResponseWriter, r *http.Request) {
	var req domain.DiscountUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.service.UpdateDiscount(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func salesReportToCSV(report domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	records := [][]string{
		{"start", report.Range.Start, "", ""},
		{"end", report.Range.End, "", ""},
		{"productId", "name", "units", "revenue"},
	}
	for _, item := range report.Items {
		records = append(records, []string{
			item.ProductID,
			item.Name,
			strconv.FormatInt(item.Units, 10),
			strconv.FormatInt(item.Revenue, 10),
		})
	}
	records = append(records, []string{
		"total", "",
		strconv.FormatInt(report.Totals.Units, 10),
		strconv.FormatInt(report.Totals.Revenue, 10),
	})

	if err := cw.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
