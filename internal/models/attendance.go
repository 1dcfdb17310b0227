package models

// AttendanceRecord is one day of a user's attendance as the backend reports it.
type AttendanceRecord struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
	Remark   string `json:"remark,omitempty"`
}
