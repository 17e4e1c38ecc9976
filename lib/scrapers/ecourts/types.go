package ecourts

import "encoding/json"

// CaseQuery is one captcha gated search.
type CaseQuery struct {
	CourtComplex string `json:"court_complex"`
	CaseType     string `json:"case_type"`
	CaseNumber   string `json:"case_number"`
	Year         string `json:"year"`
	Captcha      string `json:"captcha_value"`
}

func (q CaseQuery) payload() map[string]string {
	return map[string]string{
		"service_type":       "courtComplex",
		"est_code":           q.CourtComplex,
		"case_type":          q.CaseType,
		"reg_no":             q.CaseNumber,
		"reg_year":           q.Year,
		"siwp_captcha_value": q.Captcha,
		"es_ajax_request":    "1",
		"submit":             "Search",
	}
}

// CINO is the portal's case identification number.
type CINO string

type HistoryEntry struct {
	RegistrationNumber string `json:"registration_number"`
	Judge              string `json:"judge"`
	BusinessDate       string `json:"business_date"`
	HearingDate        string `json:"hearing_date"`
	Purpose            string `json:"purpose"`
}

type Act struct {
	UnderAct     string `json:"under_act"`
	UnderSection string `json:"under_section"`
}

type Order struct {
	OrderNumber  string  `json:"order_number"`
	OrderDate    string  `json:"order_date"`
	OrderDetails string  `json:"order_details"`
	DownloadLink *string `json:"download_link,omitempty"`
}

type ProcessEntry struct {
	ProcessId     string `json:"process_id"`
	ProcessDate   string `json:"process_date"`
	ProcessTitle  string `json:"process_title"`
	PartyName     string `json:"party_name"`
	IssuedProcess string `json:"issued_process"`
}

// CaseRecord is a case as shown on the portal's details view.
//
// A nil field means the section it comes from was not on the page. For the
// sequences this is different from an empty slice, which means the section's
// table was there but had no rows.
type CaseRecord struct {
	// Case Details
	CaseType           *string `json:"case_type,omitempty"`
	FilingNumber       *string `json:"filing_number,omitempty"`
	FilingDate         *string `json:"filing_date,omitempty"`
	RegistrationNumber *string `json:"registration_number,omitempty"`
	RegistrationDate   *string `json:"registration_date,omitempty"`
	CnrNumber          *string `json:"cnr_number,omitempty"`

	// Case Status
	FirstHearingDate    *string `json:"first_hearing_date,omitempty"`
	DecisionDate        *string `json:"decision_date,omitempty"`
	CaseStatus          *string `json:"case_status,omitempty"`
	NatureOfDisposal    *string `json:"nature_of_disposal,omitempty"`
	CourtNumberAndJudge *string `json:"court_number_and_judge,omitempty"`

	// FIR Details
	PoliceStation *string `json:"police_station,omitempty"`
	FirNumber     *string `json:"fir_number,omitempty"`
	FirYear       *string `json:"fir_year,omitempty"`

	Petitioners    []string       `json:"-"`
	Respondents    []string       `json:"-"`
	CaseHistory    []HistoryEntry `json:"-"`
	Acts           []Act          `json:"-"`
	Orders         []Order        `json:"-"`
	ProcessDetails []ProcessEntry `json:"-"`
}

// the sequences go through pointers so that `[]` survives encoding while an
// absent section is left out.
type caseRecordSequences struct {
	Petitioners    *[]string       `json:"petitioners,omitempty"`
	Respondents    *[]string       `json:"respondents,omitempty"`
	CaseHistory    *[]HistoryEntry `json:"case_history,omitempty"`
	Acts           *[]Act          `json:"acts,omitempty"`
	Orders         *[]Order        `json:"orders,omitempty"`
	ProcessDetails *[]ProcessEntry `json:"process_details,omitempty"`
}

type caseRecordScalars CaseRecord

func present[T any](s []T) *[]T {
	if s == nil {
		return nil
	}
	return &s
}

func (r CaseRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		caseRecordScalars
		caseRecordSequences
	}{
		caseRecordScalars: caseRecordScalars(r),
		caseRecordSequences: caseRecordSequences{
			Petitioners:    present(r.Petitioners),
			Respondents:    present(r.Respondents),
			CaseHistory:    present(r.CaseHistory),
			Acts:           present(r.Acts),
			Orders:         present(r.Orders),
			ProcessDetails: present(r.ProcessDetails),
		},
	})
}

func (r *CaseRecord) UnmarshalJSON(data []byte) error {
	var decoded struct {
		caseRecordScalars
		caseRecordSequences
	}
	err := json.Unmarshal(data, &decoded)
	if err != nil {
		return err
	}
	*r = CaseRecord(decoded.caseRecordScalars)
	seq := decoded.caseRecordSequences
	if seq.Petitioners != nil {
		r.Petitioners = *seq.Petitioners
	}
	if seq.Respondents != nil {
		r.Respondents = *seq.Respondents
	}
	if seq.CaseHistory != nil {
		r.CaseHistory = *seq.CaseHistory
	}
	if seq.Acts != nil {
		r.Acts = *seq.Acts
	}
	if seq.Orders != nil {
		r.Orders = *seq.Orders
	}
	if seq.ProcessDetails != nil {
		r.ProcessDetails = *seq.ProcessDetails
	}
	return nil
}
