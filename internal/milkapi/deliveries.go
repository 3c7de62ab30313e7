package milkapi

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

// DeliveryUpdate records the outcome of one customer's delivery.
// ActualLiters is required when Status is delivered.
type DeliveryUpdate struct {
	UserID       string                `json:"user_id" validate:"required"`
	Status       domain.DeliveryStatus `json:"status" validate:"required,oneof=scheduled delivered failed skipped"`
	ActualLiters decimal.NullDecimal   `json:"actual_liters"`
	Reason       string                `json:"reason,omitempty"`
}

type UpdateDeliveriesRequest struct {
	DeliveryDate civil.Date       `json:"delivery_date" validate:"required"`
	Deliveries   []DeliveryUpdate `json:"deliveries" validate:"required,min=1,dive"`
}

type UpdateDeliveriesResponse struct {
	Message      string
	DeliveryDate civil.Date
}

type messageDTO struct {
	Message string `json:"message"`
}

// UpdateDeliveries posts the admin's delivery outcomes for one day. This is
// where skipped days and actual liters enter the billing data.
func (c *Client) UpdateDeliveries(ctx context.Context, in UpdateDeliveriesRequest) (UpdateDeliveriesResponse, error) {
	if err := c.validateStruct(in); err != nil {
		return UpdateDeliveriesResponse{}, err
	}
	fields := map[string]string{}
	for i, d := range in.Deliveries {
		if d.Status != domain.DeliveryDelivered {
			continue
		}
		key := fmt.Sprintf("deliveries[%d].actual_liters", i)
		switch {
		case !d.ActualLiters.Valid:
			fields[key] = "required_if"
		case d.ActualLiters.Decimal.IsNegative():
			fields[key] = "gte"
		}
	}
	if len(fields) > 0 {
		return UpdateDeliveriesResponse{}, &ValidationError{Fields: fields}
	}

	type deliveryBody struct {
		UserID       string  `json:"user_id"`
		Status       string  `json:"status"`
		ActualLiters *string `json:"actual_liters,omitempty"`
		Reason       *string `json:"reason"`
	}
	body := struct {
		DeliveryDate string         `json:"delivery_date"`
		Deliveries   []deliveryBody `json:"deliveries"`
	}{DeliveryDate: in.DeliveryDate.String()}
	for _, d := range in.Deliveries {
		item := deliveryBody{UserID: d.UserID, Status: string(d.Status)}
		if d.ActualLiters.Valid {
			liters := d.ActualLiters.Decimal.StringFixed(2)
			item.ActualLiters = &liters
		}
		if d.Reason != "" {
			reason := d.Reason
			item.Reason = &reason
		}
		body.Deliveries = append(body.Deliveries, item)
	}

	var out struct {
		Message      string `json:"message"`
		DeliveryDate string `json:"delivery_date"`
	}
	if err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     "/admin/update-deliveries/",
		endpoint: "admin.update_deliveries",
		body:     body,
	}, &out); err != nil {
		return UpdateDeliveriesResponse{}, err
	}

	resp := UpdateDeliveriesResponse{Message: out.Message, DeliveryDate: in.DeliveryDate}
	if out.DeliveryDate != "" {
		date, err := parseDate("delivery_date", out.DeliveryDate)
		if err != nil {
			return UpdateDeliveriesResponse{}, err
		}
		resp.DeliveryDate = date
	}
	return resp, nil
}

// CancelSubscription stops deliveries for the session user.
func (c *Client) CancelSubscription(ctx context.Context) (string, error) {
	return c.postMessage(ctx, "/subscription/cancel/", "subscription.cancel")
}

func (c *Client) ReactivateSubscription(ctx context.Context) (string, error) {
	return c.postMessage(ctx, "/subscription/reactivate/", "subscription.reactivate")
}

func (c *Client) postMessage(ctx context.Context, path, endpoint string) (string, error) {
	var out messageDTO
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     path,
		endpoint: endpoint,
	}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
