package settle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/etnz/settle/bank"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestEncodeCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeCommand(&buf, NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(1000), "047", "0001")); err != nil {
		t.Fatal(err)
	}
	want := `{"command":"collect","date":"2025-03-03","journal":"CARD","plan":"1 cuota","partner":"Cliente","amount":1000,"currency":"ARS","batch":"047","coupon":"0001"}` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("EncodeCommand() = %s, want %s", got, want)
	}
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		line string
		want CommandType
	}{
		{`{"command":"collect","date":"2025-03-03","journal":"CARD","plan":"1 cuota","partner":"Cliente","amount":10}`, CmdCollect},
		{`{"command":"deduct","date":"2025-03-03","accreditation":"ACR/0001","template":"Retenciones"}`, CmdDeduct},
		{`{"command":"deduction","date":"2025-03-03","deduction":"TAX/0001","action":"confirm"}`, CmdDeduction},
		{`{"command":"accreditation","date":"2025-03-03","accreditation":"ACR/0001","action":"reset"}`, CmdAccreditation},
		{`{"command":"batch","date":"2025-03-03","action":"create","accreditations":["ACR/0001"]}`, CmdBatch},
		{`{"command":"pay","date":"2025-03-03","accreditations":["ACR/0001"]}`, CmdPay},
		{`{"command":"payment","date":"2025-03-03","payment":"PAY/0001","action":"state","state":"paid"}`, CmdPayment},
		{`{"command":"transfer","date":"2025-03-03","from":"BNK","to":"CSH","amount":5}`, CmdTransfer},
		{`{"command":"statement","date":"2025-03-03","statement":"EXT","journal":"BNK","ref":"Lote 1","amount":-5}`, CmdStatement},
		{`{"command":"invoice-fees","date":"2025-03-03","accreditations":["ACR/0001"]}`, CmdInvoiceFees},
		{`{"command":"invoice","date":"2025-03-03","name":"FA","type":"out_invoice","partner":"Cliente","journal":"SALE","net":100}`, CmdInvoice},
		{`{"command":"assign","date":"2025-03-03","account":"1.3.1","mode":"add","partners":["Cliente"]}`, CmdAssign},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.line))
			if err != nil {
				t.Fatalf("DecodeCommand() failed: %v", err)
			}
			if cmd.What() != tt.want || cmd.When() != monday {
				t.Errorf("DecodeCommand() = %s on %s, want %s on %s", cmd.What(), cmd.When(), tt.want, monday)
			}
		})
	}

	if _, err := DecodeCommand([]byte(`{"command":"buy"}`)); err == nil {
		t.Error("DecodeCommand() of an unknown command succeeded")
	}
	if _, err := DecodeCommand([]byte(`not json`)); err == nil {
		t.Error("DecodeCommand() of garbage succeeded")
	}
}

func TestDecodeCommand_Fields(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"command":"collect","date":"2025-03-03","journal":"CARD","plan":"1 cuota","partner":"Cliente","amount":-10.5,"currency":"ARS","movement":"refund","batch":"047"}`))
	if err != nil {
		t.Fatal(err)
	}
	c := cmd.(Collect)
	if c.Movement != Refund || c.BatchNumber != "047" || !c.Amount.Equal(ARS(-10.5)) {
		t.Errorf("Collect = %+v", c)
	}

	cmd, err = DecodeCommand([]byte(`{"command":"statement","date":"2025-03-03","statement":"EXT","journal":"BNK","ref":"Lote 1","amount":-5,"model":"proveedores"}`))
	if err != nil {
		t.Fatal(err)
	}
	s := cmd.(Statement)
	if s.Model != "proveedores" || s.Line.Date != monday || !s.Line.Amount.Equal(decimal.NewFromInt(-5)) {
		t.Errorf("Statement = %+v", s)
	}

	cmd, err = DecodeCommand([]byte(`{"command":"payment","date":"2025-03-03","payment":"PAY/0001","action":"state","state":"in_process"}`))
	if err != nil {
		t.Fatal(err)
	}
	if p := cmd.(UpdatePayment); p.State != PaymentInProcess {
		t.Errorf("State = %s, want in_process", p.State)
	}
}

// TestLedger_RoundTrip encodes a ledger, decodes it and encodes it again.
func TestLedger_RoundTrip(t *testing.T) {
	deduct := NewDeduct(monday, "ACR/0001", "SIRCREB", "1.4.1", Pct(0))
	deduct.Amount = decimal.RequireFromString("12.5")
	batch := NewUpdateBatch(monday, "", ActCreate, "ACR/0001", "ACR/0002")
	batch.Fee = decimal.NewFromInt(3)
	transfer := NewTransfer(monday, "BNK", "CSH", ARS(500), "Retiro")
	transfer.Key = "retiro-1"

	l := NewLedger()
	l.Append(
		NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(1000), "047", "0001"),
		NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(500), "047", "0002"),
		NewDeductTemplate(monday, "ACR/0001", "Retenciones"),
		deduct,
		NewUpdateDeduction(monday, "TAX/0001", ActConfirm),
		batch,
		NewUpdateBatch(monday, "LIQ/2025/0001", ActTransfer),
		NewPaymentState(monday, "PAY/0002", PaymentPaid),
		transfer,
		NewStatement(bank.Line{Statement: "EXT", Seq: 3, Journal: "BNK", Ref: "Kiosco", Amount: decimal.NewFromInt(40), Date: monday}, ""),
		NewInvoiceFees(monday, true, "ACR/0001", "ACR/0002"),
		NewAssign(monday, "1.3.1", "add", "Cliente"),
	)

	var first bytes.Buffer
	if err := EncodeLedger(&first, l); err != nil {
		t.Fatalf("EncodeLedger() failed: %v", err)
	}
	decoded, err := DecodeLedger(strings.NewReader(first.String()))
	if err != nil {
		t.Fatalf("DecodeLedger() failed: %v", err)
	}
	if decoded.Len() != l.Len() {
		t.Fatalf("decoded %d commands, want %d", decoded.Len(), l.Len())
	}
	var second bytes.Buffer
	if err := EncodeLedger(&second, decoded); err != nil {
		t.Fatalf("EncodeLedger() failed: %v", err)
	}
	if diff := cmp.Diff(first.String(), second.String()); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}

	// the ledger replays into a consistent book.
	b, err := Replay(testSettings(), decoded)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	batchT, err := b.Batch("LIQ/2025/0001")
	if err != nil {
		t.Fatal(err)
	}
	if batchT.State() != BatchReconciled {
		t.Errorf("batch is %s, want reconciled", batchT.State())
	}
	checkTrialBalance(t, b)
}

func TestDecodeLedger_LineError(t *testing.T) {
	input := `{"command":"pay","date":"2025-03-03","accreditations":["ACR/0001"]}

{"command":"nope","date":"2025-03-03"}
`
	_, err := DecodeLedger(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("DecodeLedger() = %v, want an error on line 3", err)
	}
}

func TestReplay_Error(t *testing.T) {
	l := NewLedger()
	l.Append(NewPay(monday, "ACR/0001"))
	if _, err := Replay(testSettings(), l); err == nil || !strings.Contains(err.Error(), "#1") {
		t.Errorf("Replay() = %v, want an error on command #1", err)
	}
}
