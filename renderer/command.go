package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/settle"
)

// Command renders a command to a one line description.
func Command(cmd settle.Command) string {
	switch v := cmd.(type) {
	case settle.Collect:
		return fmt.Sprintf("Collected %s from %s on %s (Lote %s, Cupón %s)", v.Amount, v.Partner, v.Journal, v.BatchNumber, v.Coupon)
	case settle.Deduct:
		if v.Template != "" {
			return fmt.Sprintf("Deducted template %q from %s", v.Template, v.Accreditation)
		}
		return fmt.Sprintf("Deducted %s from %s", v.Name, v.Accreditation)
	case settle.UpdateDeduction:
		return fmt.Sprintf("Deduction %s: %s", v.Deduction, v.Action)
	case settle.UpdateAccreditation:
		return fmt.Sprintf("Accreditation %s: %s", v.Accreditation, v.Action)
	case settle.UpdateBatch:
		if len(v.Accreditations) > 0 {
			return fmt.Sprintf("Batch %s: %s %s", v.Batch, v.Action, strings.Join(v.Accreditations, ", "))
		}
		return fmt.Sprintf("Batch %s: %s", v.Batch, v.Action)
	case settle.Pay:
		return fmt.Sprintf("Credited %s", strings.Join(v.Accreditations, ", "))
	case settle.UpdatePayment:
		if v.Action != settle.ActState {
			return fmt.Sprintf("Payment %s: %s", v.Payment, v.Action)
		}
		return fmt.Sprintf("Payment %s: %s", v.Payment, v.State)
	case settle.Transfer:
		return fmt.Sprintf("Transferred %s from %s to %s", v.Amount, v.From, v.To)
	case settle.Statement:
		return fmt.Sprintf("Statement line %q of %s %s", v.Line.Ref, v.Line.Amount.StringFixed(2), v.Line.Currency)
	case settle.InvoiceFees:
		return fmt.Sprintf("Invoiced fees of %s", strings.Join(v.Accreditations, ", "))
	case settle.RecordInvoice:
		return fmt.Sprintf("Recorded %s %s of %s", v.MoveType, v.Name, v.Partner)
	case settle.Assign:
		return fmt.Sprintf("Assigned %s to %s (%s)", strings.Join(v.Partners, ", "), v.Account, v.Mode)
	default:
		return string(cmd.What())
	}
}
