// Package api contains the aggregator wire contract. Field names and the
// single-page response shape are fixed by the consuming TVBox-style clients
// and must not change.
package api

// Response codes used in the "code" field. Note that these are soft codes
// returned with HTTP 200 on the catalog endpoint.
const (
	StatusNoData       = 0
	StatusOK           = 1
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusError        = 500
)

type VodRecord struct {
	VodID       string `json:"vod_id"`
	VodName     string `json:"vod_name"`
	VodPic      string `json:"vod_pic"`
	VodRemarks  string `json:"vod_remarks"`
	VodYear     string `json:"vod_year"`
	VodContent  string `json:"vod_content"`
	TypeName    string `json:"type_name"`
	VodPlayFrom string `json:"vod_play_from,omitempty"`
	VodPlayURL  string `json:"vod_play_url,omitempty"`
}

type VodResponse struct {
	Code      int         `json:"code"`
	Msg       string      `json:"msg"`
	Page      int         `json:"page"`
	PageCount int         `json:"pagecount"`
	Limit     int         `json:"limit"`
	Total     int         `json:"total"`
	List      []VodRecord `json:"list"`
}

// OK wraps records into a successful single-page response. Every result set
// is returned as page 1 of 1, with limit and total equal to the list length.
func OK(list []VodRecord) *VodResponse {
	return &VodResponse{
		Code:      StatusOK,
		Msg:       "success",
		Page:      1,
		PageCount: 1,
		Limit:     len(list),
		Total:     len(list),
		List:      list,
	}
}

// Empty is the "no data but no error" response.
func Empty(msg string) *VodResponse {
	return &VodResponse{
		Code:      StatusNoData,
		Msg:       msg,
		Page:      1,
		PageCount: 1,
		List:      []VodRecord{},
	}
}

// Fail builds an error response with one of the soft status codes.
func Fail(code int, msg string) *VodResponse {
	return &VodResponse{Code: code, Msg: msg, List: []VodRecord{}}
}

// Identity is the authenticated site user kept in the cookie session.
type Identity struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}
