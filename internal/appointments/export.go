package appointments

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var exportHeader = []string{"id", "date", "time", "duration", "client", "practitioner", "service", "status", "online", "price"}

// WriteCSV renders views as CSV with dates in loc.
func WriteCSV(w io.Writer, views []*View, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("appointments: export header: %w", err)
	}
	for _, v := range views {
		local := v.AppointmentDate.In(loc)
		record := []string{
			v.ID,
			local.Format("02.01.2006"),
			local.Format("15:04"),
			strconv.Itoa(v.Duration),
			"",
			"",
			"",
			string(v.Status),
			strconv.FormatBool(v.IsOnline),
			"",
		}
		if v.Client != nil {
			record[4] = strings.TrimSpace(v.Client.FirstName + " " + v.Client.LastName)
		}
		if v.Personnel != nil {
			record[5] = strings.TrimSpace(v.Personnel.FirstName + " " + v.Personnel.LastName)
		}
		if v.Service != nil {
			record[6] = v.Service.Name
		}
		if v.Price != nil {
			record[9] = strconv.FormatFloat(*v.Price, 'f', 2, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("appointments: export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("appointments: export flush: %w", err)
	}
	return nil
}
