// Package settle follows credit card coupons from the day they are collected
// until the card processor credits them in a bank account. It is local-first
// and auditable: every change is a command recorded in an append-only JSONL
// ledger, and the state of the books is rebuilt by replaying it.
//
// The core functionalities include:
//   - Accreditations: one per card coupon, with the fee, financial cost and
//     estimated accreditation date computed from the card plan and the
//     holiday calendar, and the tax deductions withheld by the processor.
//   - Batch transfers: groups of accreditations moved from the card journal
//     to the bank journal with an internal transfer, reconciled when the bank
//     confirms the payment.
//   - Payments: idempotent customer receipts, vendor payments and internal
//     transfers. An internal transfer posts a pair of payments, and reverses
//     itself when the pair cannot be posted.
//   - Accounting: a double-entry general ledger where a move cannot exist
//     unbalanced, fee invoices billed to the card processor, and invoices
//     imported from AFIP listings.
//   - Bank statements: statement lines turned into payments with reconcile
//     models, and matched to card batches by their "Lote" reference.
//   - Dashboard: the KPI cells of the kpi package computed on the books.
//
// A Store serializes the commands of concurrent callers and detects other
// processes appending to the same ledger file.
//
// This package serves as the foundational logic for the `cst` command-line
// tool.
package settle
