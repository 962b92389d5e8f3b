package http

import "net/http"

// handleListTransactions returns one page of the caller's transactions with
// statistics over the whole filtered set.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	f.UserID = userFrom(r.Context())

	page, err := s.transactions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(page).Write(w)
}
