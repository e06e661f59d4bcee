package model

// Settings holds the company and printer details shown on tickets.
type Settings struct {
	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
	TicketFooter   string `json:"ticket_footer"`
	PrinterName    string `json:"printer_name"`
}

// DefaultSettings are used for keys never saved.
var DefaultSettings = Settings{
	CompanyName:  "IRON TRACE",
	TicketFooter: "Return tools clean and in working order.",
	PrinterName:  "POS-80",
}
