// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shopify

import (
	"fmt"
	"regexp"
	"strings"
)

// Delivery dates are encoded as DD-MM-YYYY inside the order tags.
var reDeliveryDate = regexp.MustCompile(`\d{2}-\d{2}-\d{4}`)

const orderSeparator = "======================================"

// FormatOrders renders orders as plain text for the knowledge base, one
// block per order, so the conversational agent can answer questions about
// order status, delivery, and contents.
func FormatOrders(orders []Order) string {
	if len(orders) == 0 {
		return "No orders available."
	}

	var b strings.Builder
	b.WriteString("# Customer Orders\n")

	for _, order := range orders {
		b.WriteString("\n" + orderSeparator + "\n")
		fmt.Fprintf(&b, "ORDER NUMBER: %d\n", order.OrderNumber)
		fmt.Fprintf(&b, "ID: %d\n", order.ID)
		fmt.Fprintf(&b, "DATE: %s\n", order.CreatedAt)
		fmt.Fprintf(&b, "CUSTOMER: %s\n", customerName(order.Customer))
		fmt.Fprintf(&b, "EMAIL: %s\n", customerEmail(order.Customer))
		fmt.Fprintf(&b, "PAYMENT STATUS: %s\n", order.FinancialStatus)
		fmt.Fprintf(&b, "FULFILLMENT STATUS: %s\n", fulfillmentStatus(order))
		fmt.Fprintf(&b, "DELIVERY STATUS: %s\n", deliveryStatus(order))
		fmt.Fprintf(&b, "DELIVERY METHOD: %s\n", deliveryMethod(order))
		fmt.Fprintf(&b, "EXPECTED DELIVERY: %s\n", deliveryDate(order.Tags))
		fmt.Fprintf(&b, "TOTAL: %s %s\n", order.TotalPrice, order.Currency)

		if addr := formatAddress(order.ShippingAddress); addr != "" {
			b.WriteString("\nSHIPPING ADDRESS:\n" + addr + "\n")
		}

		b.WriteString("\nPRODUCTS:\n")
		for _, item := range order.LineItems {
			name := item.Title
			if item.VariantTitle != "" {
				name = item.Title + " - " + item.VariantTitle
			}
			fmt.Fprintf(&b, "- %dx %s (%s %s)\n", item.Quantity, name, item.Price, order.Currency)
		}
		b.WriteString(orderSeparator + "\n")
	}

	return b.String()
}

func customerName(c Customer) string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func customerEmail(c Customer) string {
	if c.Email == "" {
		return "No email provided"
	}
	return c.Email
}

func fulfillmentStatus(order Order) string {
	if order.FulfillmentStatus == "" {
		return "unfulfilled"
	}
	return order.FulfillmentStatus
}

func deliveryStatus(order Order) string {
	switch order.FulfillmentStatus {
	case "fulfilled":
		return "Shipped"
	case "partial":
		return "Partially shipped"
	default:
		return "Not shipped yet"
	}
}

func deliveryMethod(order Order) string {
	if len(order.ShippingLines) > 0 && order.ShippingLines[0].Title != "" {
		return order.ShippingLines[0].Title
	}
	return "Standard Shipping"
}

func deliveryDate(tags string) string {
	if match := reDeliveryDate.FindString(tags); match != "" {
		return match
	}
	return "Not scheduled"
}

func formatAddress(addr Address) string {
	lines := []string{
		addr.Address1,
		addr.Address2,
		strings.TrimSpace(addr.Zip + " " + addr.City),
		addr.Country,
	}
	var kept []string
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
