package contact

// FieldKey names one assignable slot on a contact record. These exact strings
// travel over the API as assignment and transfer targets.
type FieldKey string

const (
	FieldName      FieldKey = "name"
	FieldLastName  FieldKey = "lastName"
	FieldFirstName FieldKey = "firstName"
	FieldCompany   FieldKey = "company"
	FieldTitle     FieldKey = "title"
	FieldPhone     FieldKey = "phone"
	FieldEmail     FieldKey = "email"
	FieldWebsite   FieldKey = "website"
	FieldAddress   FieldKey = "address"
)

// FieldKeys lists every assignable slot in display order.
var FieldKeys = []FieldKey{
	FieldName,
	FieldLastName,
	FieldFirstName,
	FieldCompany,
	FieldTitle,
	FieldPhone,
	FieldEmail,
	FieldWebsite,
	FieldAddress,
}

func (k FieldKey) IsValid() bool {
	for _, key := range FieldKeys {
		if k == key {
			return true
		}
	}
	return false
}

// MultiLine reports whether appended values join with a newline instead of a
// space. Only the address slot accumulates lines.
func (k FieldKey) MultiLine() bool {
	return k == FieldAddress
}
