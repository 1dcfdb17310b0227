package models

// User is a dashboard account as the backend returns it in role rosters.
// Roles share one flat shape; only the endpoint differs.
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Mobile        string `json:"mobile,omitempty"`
	DOB           string `json:"dob,omitempty"`
	Address       string `json:"address,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSCCode      string `json:"ifsc_code,omitempty"`
	TeamLeader    string `json:"team_leader,omitempty"`
	UserActive    bool   `json:"user_active"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Initial returns the first letter of the name for avatar badges, or "?".
func (u *User) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return "?"
}

// LoginData is the "data" object of a successful login response.
type LoginData struct {
	TokenDetail  string `json:"token_detail"`
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	IsAdmin      bool   `json:"is_admin"`
	IsTeamLeader bool   `json:"is_team_leader"`
	IsStaffNew   bool   `json:"is_staff_new"`
	IsFreelancer bool   `json:"is_freelancer"`
}

// Profile is the logged-in user's own record.
type Profile struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile,omitempty"`
	DOB            string `json:"dob,omitempty"`
	Address        string `json:"address,omitempty"`
	ProfilePic     string `json:"profile_pic,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	AccountNumber  string `json:"account_number,omitempty"`
	IFSCCode       string `json:"ifsc_code,omitempty"`
	AadharNumber   string `json:"aadhar_number,omitempty"`
	PanNumber      string `json:"pan_number,omitempty"`
	EmergencyPhone string `json:"emergency_phone,omitempty"`
}
