package domain

const (
	GenderMen    = "men"
	GenderWomen  = "women"
	GenderKid    = "kid"
	GenderUnisex = "unisex"
)

func IsValidGender(v string) bool {
	switch v {
	case GenderMen, GenderWomen, GenderKid, GenderUnisex:
		return true
	default:
		return false
	}
}
