package models

import (
	"fmt"
)

// Column pairs a remote table column with its spreadsheet header.
type Column struct {
	Name   string
	Header string
}

// Columns is the fixed presentation order shared by the spreadsheet and the
// remote tables.
var Columns = []Column{
	{"job_title", "Job Title"},
	{"company_name", "Company Name"},
	{"requirements", "Requirements"},
	{"location", "Location"},
	{"salary_range", "Salary Range"},
	{"estimated_annual_salary", "Estimated Annual Salary"},
	{"estimated_annual_salary_usd", "Estimated Annual Salary (USD)"},
	{"job_description", "Job Description"},
	{"team_size", "Team Size/Business Line Size"},
	{"company_size", "Company Size"},
	{"posted_date", "Posted Date"},
	{"job_status", "Job Status"},
	{"platform", "Platform"},
	{"job_link", "Job Link"},
}

// Row is a JobRecord flattened to text, one field per column.
type Row struct {
	JobTitle                 string `json:"job_title"`
	CompanyName              string `json:"company_name"`
	Requirements             string `json:"requirements"`
	Location                 string `json:"location"`
	SalaryRange              string `json:"salary_range"`
	EstimatedAnnualSalary    string `json:"estimated_annual_salary"`
	EstimatedAnnualSalaryUSD string `json:"estimated_annual_salary_usd"`
	JobDescription           string `json:"job_description"`
	TeamSize                 string `json:"team_size"`
	CompanySize              string `json:"company_size"`
	PostedDate               string `json:"posted_date"`
	JobStatus                string `json:"job_status"`
	Platform                 string `json:"platform"`
	JobLink                  string `json:"job_link"`
}

// Row flattens the record. Salary amounts are whole numbers without
// separators; dates are YYYY-MM-DD.
func (r JobRecord) Row() Row {
	row := Row{
		JobTitle:                 r.Title,
		CompanyName:              r.Company,
		Requirements:             r.RequirementsSummary,
		Location:                 r.Location,
		SalaryRange:              r.SalaryText,
		EstimatedAnnualSalary:    formatWhole(r.EstimatedAnnual),
		EstimatedAnnualSalaryUSD: formatWhole(r.EstimatedAnnualUSD),
		JobDescription:           r.Description,
		TeamSize:                 r.TeamSize,
		CompanySize:              r.CompanySize,
		JobStatus:                JobStatusActive,
		Platform:                 r.SourcePlatform.DisplayName(),
		JobLink:                  r.JobURL,
	}
	if r.PostedDate != nil {
		row.PostedDate = r.PostedDate.Format("2006-01-02")
	}
	return row
}

// Values returns the row in Columns order.
func (row Row) Values() []string {
	return []string{
		row.JobTitle, row.CompanyName, row.Requirements, row.Location,
		row.SalaryRange, row.EstimatedAnnualSalary, row.EstimatedAnnualSalaryUSD,
		row.JobDescription, row.TeamSize, row.CompanySize, row.PostedDate,
		row.JobStatus, row.Platform, row.JobLink,
	}
}

func formatWhole(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", *v)
}
