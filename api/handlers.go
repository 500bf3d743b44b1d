package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"splitledger/models"
	"splitledger/service"
)

// UserIDHeader carries the acting user id set by the upstream auth layer
const UserIDHeader = "X-User-ID"

const (
	defaultListLimit = 50
	maxImportBytes   = 10 << 20
)

type actorContextKey struct{}

// withActor rejects requests without a valid acting user and stores the id in the context
func (s *Server) withActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		id, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || id <= 0 {
			respondWithMessage(w, http.StatusUnauthorized, "missing or invalid "+UserIDHeader)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), actorContextKey{}, id)))
	}
}

func actorFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(actorContextKey{}).(int64)
	return id
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", service.ErrBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", service.ErrBadRequest, raw)
	}
	return limit, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", service.ErrBadRequest, err)
	}
	return nil
}

type registerUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	user, err := s.services.Users.GetOrCreateUser(r.Context(), req.Email, req.Name)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.GetUser(r.Context(), actorFrom(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var details models.UserDetails
	if err := decodeBody(r, &details); err != nil {
		respondWithError(w, r, err)
		return
	}
	user, err := s.services.Users.UpdateDetails(r.Context(), actorFrom(r), details)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var input service.ExpenseInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}
	expense, err := s.services.Expenses.AddExpense(r.Context(), actorFrom(r), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	detail, err := s.services.Expenses.GetExpense(r.Context(), actorFrom(r), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var input service.ExpenseInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}
	expense, err := s.services.Expenses.EditExpense(r.Context(), actorFrom(r), id, input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := s.services.Expenses.DeleteExpense(r.Context(), id, actorFrom(r)); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var input service.SettlementInput
	if err := decodeBody(r, &input); err != nil {
		respondWithError(w, r, err)
		return
	}
	expense, err := s.services.Expenses.RecordSettlement(r.Context(), actorFrom(r), input)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	summary, err := s.services.Balances.GetBalances(r.Context(), actorFrom(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetFriendBalances(w http.ResponseWriter, r *http.Request) {
	friendID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	sheet, err := s.services.Balances.GetBalancesWithFriend(r.Context(), actorFrom(r), friendID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sheet)
}

func (s *Server) handleListFriendExpenses(w http.ResponseWriter, r *http.Request) {
	friendID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	expenses, err := s.services.Expenses.ListExpensesWithFriend(r.Context(), actorFrom(r), friendID, limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleDeleteFriend(w http.ResponseWriter, r *http.Request) {
	friendID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := s.services.Friends.DeleteFriend(r.Context(), friendID, actorFrom(r)); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.services.Groups.ListGroups(r.Context(), actorFrom(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	group, err := s.services.Groups.CreateGroup(r.Context(), actorFrom(r), req.Name)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	group, err := s.services.Groups.GetGroup(r.Context(), groupID, actorFrom(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := s.services.Groups.DeleteGroup(r.Context(), groupID, actorFrom(r)); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	var req addMemberRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := s.services.Groups.AddMember(r.Context(), groupID, actorFrom(r), req.UserID); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := s.services.Groups.LeaveGroup(r.Context(), groupID, actorFrom(r)); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	balances, err := s.services.Balances.GetGroupBalances(r.Context(), groupID, actorFrom(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balances)
}

func (s *Server) handleListGroupExpenses(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	expenses, err := s.services.Expenses.ListGroupExpenses(r.Context(), actorFrom(r), groupID, limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

// handleImportSplitwise answers 200 when every record imported, 207 with the per-record failures
// when some did not, and 422 when the export was rejected before anything was written
func (s *Server) handleImportSplitwise(w http.ResponseWriter, r *http.Request) {
	export, err := s.services.Imports.ParseExport(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := s.services.Imports.ImportFromSplitwise(r.Context(), actorFrom(r), export.Friends, export.Groups)
	if err != nil {
		if result == nil || errors.Is(err, service.ErrImportFailed) {
			respondWithError(w, r, err)
			return
		}
		respondJSON(w, http.StatusMultiStatus, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.services.Exports.DownloadData(r.Context(), actorFrom(r))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="splitledger-export.json"`)
	respondJSON(w, http.StatusOK, data)
}
