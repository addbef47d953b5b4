// Package contact defines the card-scanning domain model: the extracted
// contact shape produced by the extractors, the unassigned item pool, and the
// live record the reconciliation engine mutates.
package contact

// ExtractedContact is the immediate output of one extraction pass. Every
// field defaults to the empty string; absence and emptiness are the same
// thing at this layer.
type ExtractedContact struct {
	Name      string `json:"name"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Company   string `json:"company"`
	Title     string `json:"title"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Website   string `json:"website"`
	Address   string `json:"address"`
}

// UnassignedItem is one piece of recognized text that did not land in a field
// slot. SourceIndex is its position in the originating sequence and stays
// stable for the item's lifetime; Used flips once, on successful assignment.
type UnassignedItem struct {
	Text        string `json:"text"`
	Type        string `json:"type"`
	SourceIndex int    `json:"sourceIndex"`
	Used        bool   `json:"used"`
}

// Record is the live contact under review. The photo rides along for vCard
// embedding but never serializes on the API.
type Record struct {
	Name      string `json:"name"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Company   string `json:"company"`
	Title     string `json:"title"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Website   string `json:"website"`
	Address   string `json:"address"`
	Photo     []byte `json:"-"`
}

// NewRecord seeds a record from an extraction result.
func NewRecord(ec ExtractedContact) *Record {
	return &Record{
		Name:      ec.Name,
		LastName:  ec.LastName,
		FirstName: ec.FirstName,
		Company:   ec.Company,
		Title:     ec.Title,
		Phone:     ec.Phone,
		Email:     ec.Email,
		Website:   ec.Website,
		Address:   ec.Address,
	}
}

// Get reads the named slot. Unknown keys read as empty; callers validate keys
// before mutating.
func (r *Record) Get(key FieldKey) string {
	switch key {
	case FieldName:
		return r.Name
	case FieldLastName:
		return r.LastName
	case FieldFirstName:
		return r.FirstName
	case FieldCompany:
		return r.Company
	case FieldTitle:
		return r.Title
	case FieldPhone:
		return r.Phone
	case FieldEmail:
		return r.Email
	case FieldWebsite:
		return r.Website
	case FieldAddress:
		return r.Address
	}
	return ""
}

// Set writes the named slot. Unknown keys are ignored.
func (r *Record) Set(key FieldKey, value string) {
	switch key {
	case FieldName:
		r.Name = value
	case FieldLastName:
		r.LastName = value
	case FieldFirstName:
		r.FirstName = value
	case FieldCompany:
		r.Company = value
	case FieldTitle:
		r.Title = value
	case FieldPhone:
		r.Phone = value
	case FieldEmail:
		r.Email = value
	case FieldWebsite:
		r.Website = value
	case FieldAddress:
		r.Address = value
	}
}

// HasIdentity reports whether at least one identifying field is set. Records
// without identity cannot be encoded or exported.
func (r *Record) HasIdentity() bool {
	return r.Name != "" || r.LastName != "" || r.FirstName != "" || r.Company != ""
}

// DisplayName picks the best human label: full name, then composed
// last/first, then company, then a fixed fallback.
func (r *Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.LastName != "" || r.FirstName != "" {
		if r.LastName != "" && r.FirstName != "" {
			return r.LastName + " " + r.FirstName
		}
		return r.LastName + r.FirstName
	}
	if r.Company != "" {
		return r.Company
	}
	return "contact"
}
