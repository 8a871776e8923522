// seed_leads.go — standalone script to parse a lead export CSV and seed leads via the Rollcall API.
//
// Usage:
//
//	go run scripts/seed_leads.go -csv /path/to/leads.csv -api http://localhost:8700 -recruiter system
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type leadPayload struct {
	Name                  string  `json:"name"`
	Email                 string  `json:"email,omitempty"`
	Phone                 string  `json:"phone,omitempty"`
	YearsExperience       float64 `json:"years_experience"`
	HasSecurityExperience bool    `json:"has_security_experience"`
	HasLicense            bool    `json:"has_license"`
	HasTransportation     bool    `json:"has_transportation"`
	SalaryExpectation     float64 `json:"salary_expectation"`
	CertificationCount    int     `json:"certification_count"`
	FullTime              bool    `json:"full_time"`
	Weekends              bool    `json:"weekends"`
	Nights                bool    `json:"nights"`
	Source                string  `json:"source,omitempty"`
	Referred              bool    `json:"referred"`
	DistanceMiles         float64 `json:"distance_miles"`
}

func main() {
	csvPath := flag.String("csv", "leads.csv", "path to lead export CSV")
	apiURL := flag.String("api", "http://localhost:8700", "Rollcall API base URL")
	recruiterID := flag.String("recruiter", "system", "X-Recruiter-ID header value")
	dryRun := flag.Bool("dry-run", false, "print leads without posting")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		log.Fatalf("read header: %v", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var leads []leadPayload
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read row: %v", err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		name := get("name")
		if name == "" {
			continue
		}
		leads = append(leads, leadPayload{
			Name:                  name,
			Email:                 get("email"),
			Phone:                 get("phone"),
			YearsExperience:       parseFloat(get("years_experience")),
			HasSecurityExperience: parseBool(get("has_security_experience")),
			HasLicense:            parseBool(get("has_license")),
			HasTransportation:     parseBool(get("has_transportation")),
			SalaryExpectation:     parseFloat(get("salary_expectation")),
			CertificationCount:    int(parseFloat(get("certification_count"))),
			FullTime:              parseBool(get("full_time")),
			Weekends:              parseBool(get("weekends")),
			Nights:                parseBool(get("nights")),
			Source:                get("source"),
			Referred:              parseBool(get("referred")),
			DistanceMiles:         parseFloat(get("distance_miles")),
		})
	}

	log.Printf("parsed %d leads from %s", len(leads), *csvPath)

	if *dryRun {
		for _, lead := range leads {
			out, _ := json.MarshalIndent(lead, "", "  ")
			fmt.Println(string(out))
		}
		return
	}

	client := &http.Client{}
	var created, failed int
	for _, lead := range leads {
		body, _ := json.Marshal(lead)
		req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/leads", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Recruiter-ID", *recruiterID)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("post lead %q: %v", lead.Name, err)
			failed++
			continue
		}
		if resp.StatusCode != http.StatusCreated {
			msg, _ := io.ReadAll(resp.Body)
			log.Printf("post lead %q: status %d: %s", lead.Name, resp.StatusCode, string(msg))
			failed++
		} else {
			created++
		}
		resp.Body.Close()
	}

	log.Printf("done: %d created, %d failed", created, failed)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
