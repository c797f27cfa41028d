package http

import "net/http"

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	res, err := a.sessionSvc.Start(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"token":      res.Token,
		"shopper_id": res.ShopperID,
	})
}
