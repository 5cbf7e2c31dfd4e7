package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"osryn.bank/internal/audit"
	"osryn.bank/internal/ledger"
	"osryn.bank/internal/money"
	"osryn.bank/internal/obs"
	"osryn.bank/internal/statement"
	"osryn.bank/internal/stream"
)

const (
	codeInvalidCredentials = ledger.CodeInvalidCredentials
	codeInvalidAmount      = ledger.CodeInvalidAmount
	codeInvalidInput       = ledger.CodeInvalidInput
)

type registerRequest struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Secret      string `json:"secret"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Kind        string `json:"kind"`
}

type loginRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	ToAccount string `json:"to_account"`
	Amount    string `json:"amount"`
}

type billPaymentRequest struct {
	Biller string `json:"biller"`
	Amount string `json:"amount"`
}

type profileRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
}

type secretRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

// AccountView is an account as served to its owner.
type AccountView struct {
	ledger.Account
	BalanceDisplay string `json:"balance_display"`
}

// TransactionView is a transaction with display amounts.
type TransactionView struct {
	ledger.Transaction
	AmountDisplay       string `json:"amount_display"`
	BalanceAfterDisplay string `json:"balance_after_display"`
}

// TransferView holds both legs of a transfer.
type TransferView struct {
	Debit  TransactionView `json:"debit"`
	Credit TransactionView `json:"credit"`
}

// TransactionList is the body of GET /v1/me/transactions.
type TransactionList struct {
	Items []TransactionView `json:"items"`
	AsOf  time.Time         `json:"as_of"`
}

// BalanceHistoryView is the body of GET /v1/me/balance-history.
type BalanceHistoryView struct {
	Points   []int64  `json:"points"`
	Display  []string `json:"display"`
	Capacity int      `json:"capacity"`
}

func accountView(acc ledger.Account) AccountView {
	return AccountView{Account: acc, BalanceDisplay: money.Format(acc.Balance)}
}

func transactionView(tx ledger.Transaction) TransactionView {
	return TransactionView{
		Transaction:         tx,
		AmountDisplay:       money.Format(tx.Amount),
		BalanceAfterDisplay: money.Format(tx.BalanceAfter),
	}
}

func (a *API) listBillers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": ledger.Billers()})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	acc, err := a.ledger.CreateAccount(r.Context(), ledger.NewAccount{
		DisplayName: req.DisplayName,
		Username:    req.Username,
		Secret:      req.Secret,
		Email:       req.Email,
		Phone:       req.Phone,
		Kind:        ledger.AccountKind(strings.ToLower(strings.TrimSpace(req.Kind))),
	})
	obs.ObserveLedger("create_account", err)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	if counter, ok := a.ledger.(interface{ Len() int }); ok {
		obs.SetAccounts(counter.Len())
	}

	a.audit(r.Context(), "ledger.account.create", map[string]any{
		"account_id": acc.ID,
		"username":   acc.Username,
		"kind":       string(acc.Kind),
	})

	w.Header().Set("Location", "/v1/me")
	writeJSON(w, http.StatusCreated, accountView(acc))
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	acc, err := a.ledger.Authenticate(r.Context(), req.Username, req.Secret)
	obs.ObserveLedger("authenticate", err)
	if err != nil {
		a.audit(r.Context(), "auth.login.failed", map[string]any{"username": req.Username})
		handleLedgerError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.login", map[string]any{"account_id": acc.ID})
	writeJSON(w, http.StatusOK, accountView(acc))
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	acc, err := a.ledger.GetAccount(r.Context(), accountID(r))
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountView(acc))
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	acc, err := a.ledger.UpdateProfile(r.Context(), accountID(r), ledger.Profile{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
	})
	obs.ObserveLedger("update_profile", err)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	a.audit(r.Context(), "ledger.account.profile", nil)
	writeJSON(w, http.StatusOK, accountView(acc))
}

func (a *API) changeSecret(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	err := a.ledger.ChangeSecret(r.Context(), accountID(r), req.Current, req.Next)
	obs.ObserveLedger("change_secret", err)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.secret.change", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	amount, ok := decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	id := accountID(r)
	tx, err := a.ledger.Deposit(r.Context(), id, amount)
	a.posted(r, "deposit", id, tx, err)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionView(tx))
}

func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	amount, ok := decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	id := accountID(r)
	tx, err := a.ledger.Withdraw(r.Context(), id, amount)
	a.posted(r, "withdraw", id, tx, err)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionView(tx))
}

func (a *API) payBill(w http.ResponseWriter, r *http.Request) {
	var req billPaymentRequest
	amount, ok := decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	id := accountID(r)
	tx, err := a.ledger.PayBill(r.Context(), id, req.Biller, amount)
	a.posted(r, "pay_bill", id, tx, err)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionView(tx))
}

func (a *API) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	amount, ok := decodeAmount(w, r, &req, &req.Amount)
	if !ok {
		return
	}
	fromID := accountID(r)
	toID := strings.TrimSpace(req.ToAccount)
	if toID == "" {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, "to_account is required")
		return
	}

	res, err := a.ledger.Transfer(r.Context(), fromID, toID, amount)
	obs.ObserveLedger("transfer", err)
	if err != nil {
		a.audit(r.Context(), "ledger.transfer.rejected", map[string]any{
			"to_account": toID,
			"amount":     amount,
			"reason":     ledger.ErrorCode(err),
		})
		handleLedgerError(w, r, err)
		return
	}

	if a.stream != nil {
		a.stream.PublishTransfer(fromID, toID, res)
	}
	a.audit(r.Context(), "ledger.transfer.execute", map[string]any{
		"to_account": toID,
		"amount":     amount,
		"reference":  res.Debit.Reference,
	})

	writeJSON(w, http.StatusCreated, TransferView{
		Debit:  transactionView(res.Debit),
		Credit: transactionView(res.Credit),
	})
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 0, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	txs, err := a.ledger.ListTransactions(r.Context(), accountID(r))
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	items := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionView(tx))
	}
	writeJSON(w, http.StatusOK, TransactionList{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) balanceHistory(w http.ResponseWriter, r *http.Request) {
	points, err := a.ledger.BalanceHistory(r.Context(), accountID(r))
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	display := make([]string, len(points))
	for i, p := range points {
		display[i] = money.Format(p)
	}
	writeJSON(w, http.StatusOK, BalanceHistoryView{
		Points:   points,
		Display:  display,
		Capacity: ledger.HistoryCapacity,
	})
}

func (a *API) statement(w http.ResponseWriter, r *http.Request) {
	id := accountID(r)
	acc, err := a.ledger.GetAccount(r.Context(), id)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	txs, err := a.ledger.ListTransactions(r.Context(), id)
	if err != nil {
		handleLedgerError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := statement.Render(&buf, acc, txs, time.Now()); err != nil {
		obs.Logger().WithError(err).Error("render statement")
		writeError(w, r, http.StatusInternalServerError, ledger.CodeInternal, "statement rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="osryn-statement-`+id+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// posted records metrics, audit and stream output for a single-account
// posting.
func (a *API) posted(r *http.Request, op, id string, tx ledger.Transaction, err error) {
	obs.ObserveLedger(op, err)
	if err != nil {
		a.audit(r.Context(), "ledger."+op+".rejected", map[string]any{"reason": ledger.ErrorCode(err)})
		return
	}
	if a.stream != nil {
		a.stream.Publish(stream.Event{AccountID: id, Transaction: tx})
	}
	a.audit(r.Context(), "ledger."+op, map[string]any{
		"amount":    tx.Amount,
		"reference": tx.Reference,
	})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().WithError(err).Warn("audit log failed")
	}
}

// decodeAmount decodes the body into dst and parses the decimal amount field.
// It writes the error response itself and reports whether to continue.
func decodeAmount(w http.ResponseWriter, r *http.Request, dst any, field *string) (int64, bool) {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return 0, false
	}
	amount, err := money.Parse(*field)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidAmount, err.Error())
		return 0, false
	}
	return amount, true
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max))
	}
	return val, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	code := ledger.ErrorCode(err)
	switch code {
	case ledger.CodeInvalidAmount, ledger.CodeInvalidInput:
		writeError(w, r, http.StatusBadRequest, code, err.Error())
	case ledger.CodeInvalidCredentials:
		writeError(w, r, http.StatusUnauthorized, code, err.Error())
	case ledger.CodeAccountNotFound:
		writeError(w, r, http.StatusNotFound, code, err.Error())
	case ledger.CodeDuplicateUsername, ledger.CodeInsufficientFunds:
		writeError(w, r, http.StatusConflict, code, err.Error())
	default:
		obs.Logger().WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Error("ledger error")
		writeError(w, r, http.StatusInternalServerError, ledger.CodeInternal, "internal error")
	}
}
