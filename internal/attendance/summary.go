package attendance

// Summary aggregates a set of records for reporting.
type Summary struct {
	Total          int            `json:"total"`
	Open           int            `json:"open"`
	Closed         int            `json:"closed"`
	CheckInStatus  map[Status]int `json:"check_in_status"`
	CheckOutStatus map[Status]int `json:"check_out_status"`
}

// Summarize counts records by state and classification. Records still open
// contribute to CheckInStatus only.
func Summarize(records []Record) Summary {
	s := Summary{
		CheckInStatus:  make(map[Status]int),
		CheckOutStatus: make(map[Status]int),
	}
	for i := range records {
		r := &records[i]
		s.Total++
		if r.IsOpen() {
			s.Open++
		} else {
			s.Closed++
			if r.CheckOutStatus != "" {
				s.CheckOutStatus[r.CheckOutStatus]++
			}
		}
		if r.CheckInStatus != "" {
			s.CheckInStatus[r.CheckInStatus]++
		}
	}
	return s
}
