package ingest

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// zapRiskCodes maps ZAP numeric risk codes onto its risk vocabulary.
var zapRiskCodes = map[string]string{
	"3": "High",
	"2": "Medium",
	"1": "Low",
	"0": "Informational",
}

type zapAlert struct {
	Alert     string `json:"alert"`
	Name      string `json:"name"`
	RiskCode  string `json:"riskcode"`
	RiskDesc  string `json:"riskdesc"`
	Desc      string `json:"desc"`
	Solution  string `json:"solution"`
	Reference string `json:"reference"`
	CWEID     string `json:"cweid"`
	Instances []struct {
		URI    string `json:"uri"`
		Method string `json:"method"`
		Param  string `json:"param"`
	} `json:"instances"`
}

type zapJSONReport struct {
	Site []struct {
		Name   string     `json:"@name"`
		Alerts []zapAlert `json:"alerts"`
	} `json:"site"`
}

// DecodeZAPJSON decodes a ZAP "traditional JSON" report.
func DecodeZAPJSON(data []byte) ([]schemas.RawFinding, error) {
	var doc zapJSONReport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode ZAP JSON report: %w", err)
	}
	var out []schemas.RawFinding
	for _, site := range doc.Site {
		for _, a := range site.Alerts {
			title := a.Alert
			if title == "" {
				title = a.Name
			}
			locs := make([]any, 0, len(a.Instances))
			for _, inst := range a.Instances {
				locs = append(locs, map[string]any{"url": inst.URI, "method": inst.Method, "param": inst.Param})
			}
			out = append(out, zapRecord(title, a.RiskDesc, a.RiskCode, a.Desc, a.Solution, a.Reference, locs))
		}
	}
	return out, nil
}

// DecodeZAPXML decodes a ZAP XML report (OWASPZAPReport/site/alerts/alertitem).
func DecodeZAPXML(data []byte) ([]schemas.RawFinding, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse ZAP XML report: %w", err)
	}
	root := doc.SelectElement("OWASPZAPReport")
	if root == nil {
		return nil, fmt.Errorf("not a ZAP XML report: missing OWASPZAPReport root")
	}

	var out []schemas.RawFinding
	for _, site := range root.SelectElements("site") {
		alerts := site.SelectElement("alerts")
		if alerts == nil {
			continue
		}
		for _, item := range alerts.SelectElements("alertitem") {
			title := childText(item, "alert")
			if title == "" {
				title = childText(item, "name")
			}
			var locs []any
			if instances := item.SelectElement("instances"); instances != nil {
				for _, inst := range instances.SelectElements("instance") {
					locs = append(locs, map[string]any{
						"url":    childText(inst, "uri"),
						"method": childText(inst, "method"),
						"param":  childText(inst, "param"),
					})
				}
			}
			out = append(out, zapRecord(
				title,
				childText(item, "riskdesc"),
				childText(item, "riskcode"),
				childText(item, "desc"),
				childText(item, "solution"),
				childText(item, "reference"),
				locs,
			))
		}
	}
	return out, nil
}

func childText(e *etree.Element, tag string) string {
	child := e.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func zapRecord(title, riskDesc, riskCode, desc, solution, reference string, locs []any) schemas.RawFinding {
	return schemas.RawFinding{
		"title":       strings.TrimSpace(title),
		"risk":        zapRisk(riskDesc, riskCode),
		"description": FlattenHTML(desc),
		"solution":    FlattenHTML(solution),
		"reference":   FlattenHTML(reference),
		"locations":   locs,
	}
}

// zapRisk takes the leading word of riskdesc ("High (Medium)") and falls
// back to the numeric risk code.
func zapRisk(riskDesc, riskCode string) string {
	if fields := strings.Fields(riskDesc); len(fields) > 0 {
		return fields[0]
	}
	return zapRiskCodes[strings.TrimSpace(riskCode)]
}
