package core

import (
	"regexp"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// productRule maps keywords to a (category, product) pair.
type productRule struct {
	Category string
	Product  string
	Keywords []string
}

// productRules is checked in order, so specific sub-products precede their parent service.
var productRules = []productRule{
	// Specific products first
	{"Data Analytics", "BigQuery Migration", []string{"bigquerymigration", "bigquery-migration"}},
	{"Data Analytics", "BigQuery Data Transfer", []string{"bigquerydatatransfer", "bigquery-data-transfer"}},
	{"Data Analytics", "BigQuery Reservation", []string{"bigqueryreservation", "bigquery-reservation"}},
	{"Data Analytics", "BigQuery Connection", []string{"bigqueryconnection", "bigquery-connection"}},
	{"Databases", "Cloud SQL", []string{"cloud-sql", "cloudsql"}},
	{"Storage", "Storage Transfer Service", []string{"storagetransfer", "storage-transfer"}},
	{"Storage", "Storage Insights", []string{"storageinsights", "storage-insights"}},
	{"Storage", "Storage Control", []string{"storagecontrol", "storage-control"}},
	{"AI and Machine Learning", "Vertex AI Search", []string{"discoveryengine", "vertex-ai-search"}},

	// AI and Machine Learning
	{"AI and Machine Learning", "Vertex AI", []string{"vertex-ai", "vertexai", "aiplatform", "gemini", "imagen", "gemma", "cmle"}},
	{"AI and Machine Learning", "Natural Language API", []string{"language", "naturallanguage"}},
	{"AI and Machine Learning", "Translation API", []string{"translate"}},
	{"AI and Machine Learning", "Vision AI", []string{"vision", "visualinspection"}},
	{"AI and Machine Learning", "Video Intelligence API", []string{"video-intelligence", "videointelligence"}},
	{"AI and Machine Learning", "Speech-to-Text", []string{"speech"}},
	{"AI and Machine Learning", "Text-to-Speech", []string{`\btts\b`, "texttospeech"}},
	{"AI and Machine Learning", "AutoML", []string{"automl"}},
	{"AI and Machine Learning", "Contact Center AI", []string{"contact-center-ai", "contactcenterinsights"}},
	{"AI and Machine Learning", "Document AI", []string{"document-ai", "documentai"}},
	{"AI and Machine Learning", "Talent Solution", []string{`\bjobs\b`, "talent"}},
	{"AI and Machine Learning", "Model Armor", []string{"model-armor", "modelarmor"}},

	// API Management
	{"API Management", "Apigee", []string{"apigee"}},
	{"API Management", "Endpoints", []string{"endpoints"}},

	// Compute
	{"Compute", "App Engine", []string{"appengine", `\bgae\b`}},
	{"Compute", "Cloud Functions", []string{"functions"}},
	{"Compute", "Cloud Run", []string{`\brun\b`, "cloud-run", "cloudrun"}},
	{"Compute", "Cloud TPU", []string{`\btpu\b`}},
	{"Compute", "Compute Engine", []string{"compute", `\bgce\b`, "vm_instance"}},
	{"Containers", "Google Kubernetes Engine (GKE)", []string{"gke", "kubernetes-engine", "container"}},
	{"Compute", "Batch", []string{`\bbatch\b`}},

	// Databases
	{"Databases", "AlloyDB", []string{"alloydb"}},
	{"Databases", "Bigtable", []string{"bigtable"}},
	{"Databases", "Datastore", []string{"datastore"}},
	{"Databases", "Firestore", []string{"firestore"}},
	{"Databases", "Spanner", []string{"spanner"}},
	{"Databases", "Memorystore", []string{"memorystore"}},

	// Data Analytics
	{"Data Analytics", "BigQuery", []string{"bigquery", "bqml"}},
	{"Data Analytics", "BigLake", []string{"biglake"}},
	{"Data Analytics", "Composer", []string{"composer"}},
	{"Data Analytics", "Dataflow", []string{"dataflow"}},
	{"Data Analytics", "Dataproc", []string{"dataproc"}},
	{"Data Analytics", "Looker", []string{"looker"}},
	{"Data Analytics", "Pub/Sub", []string{"pubsub"}},

	// Developer Tools
	{"Developer Tools", "Artifact Registry", []string{"artifact-registry", "artifactregistry"}},
	{"Developer Tools", "Cloud Build", []string{"cloud-build", "cloudbuild"}},
	{"Developer Tools", "Cloud Scheduler", []string{"cloud-scheduler", "cloudscheduler"}},
	{"Developer Tools", "Cloud Tasks", []string{"cloud-tasks", `\btasks\b`}},
	{"Developer Tools", "Container Analysis", []string{"container-analysis", "containeranalysis"}},

	// Management & Observability
	{"Management & Observability", "Cloud Asset Inventory", []string{`\basset`}},
	{"Management & Observability", "Cloud Logging", []string{"logging"}},
	{"Management & Observability", "Cloud Monitoring", []string{"monitoring"}},
	{"Management & Observability", "Cloud Profiler", []string{"profiler"}},
	{"Management & Observability", "Cloud Trace", []string{`\btrace\b`, "opencensus", "opentelemetry"}},
	{"Management & Observability", "Error Reporting", []string{"error-reporting", "errorreporting"}},
	{"Management & Observability", "Parameter Manager", []string{"parametermanager"}},

	// Networking
	{"Networking", "Media CDN", []string{"media-cdn", "mediacdn"}},
	{"Networking", "Cloud CDN", []string{`\bcdn\b`}},
	{"Networking", "Cloud DNS", []string{`\bdns\b`}},
	{"Networking", "Cloud NAT", []string{"cloud-nat"}},
	{"Networking", "Cloud Router", []string{"cloud-router"}},
	{"Networking", "Cloud VPN", []string{`\bvpn\b`}},
	{"Networking", "Connect Gateway", []string{"connectgateway"}},
	{"Networking", "Network Connectivity Center", []string{"network-connectivity"}},
	{"Networking", "Service Directory", []string{"service-directory", "servicedirectory"}},
	{"Networking", "Traffic Director", []string{"traffic-director"}},
	{"Networking", "Virtual Private Cloud (VPC)", []string{`\bvpc\b`}},

	// Security and Identity
	{"Security and Identity", "Access Approval", []string{"accessapproval"}},
	{"Security and Identity", "Identity and Access Management (IAM)", []string{`\biam\b`}},
	{"Security and Identity", "Identity-Aware Proxy (IAP)", []string{`\biap\b`}},
	{"Security and Identity", "Key Management Service (KMS)", []string{`\bkms\b`}},
	{"Security and Identity", "Private Certificate Authority", []string{"privateca"}},
	{"Security and Identity", "reCAPTCHA Enterprise", []string{"recaptcha"}},
	{"Security and Identity", "Secret Manager", []string{"secret-manager", "secretmanager"}},
	{"Security and Identity", "Security Command Center", []string{"security-command-center", "securitycenter"}},
	{"Security and Identity", "Web Risk", []string{"webrisk"}},
	{"Security and Identity", "Web Security Scanner", []string{"web-security-scanner"}},

	// Storage
	{"Storage", "Cloud Storage", []string{"storage"}},
	{"Storage", "Filestore", []string{"filestore"}},
	{"Storage", "Persistent Disk", []string{"persistent-disk"}},

	// Hybrid and Multicloud
	{"Hybrid and Multicloud", "Anthos", []string{"anthos", "servicemesh", "gkeonaws"}},

	// Other Services
	{"Other Services", "Google Analytics Data API", []string{"analyticsdata"}},
	{"Other Services", "Workflows", []string{"workflows"}},
}

// keywordMatcher tests one keyword. Invalid patterns fall back to a substring test.
type keywordMatcher struct {
	re      *regexp.Regexp
	literal string
}

func (k keywordMatcher) match(s string) bool {
	if k.re != nil {
		return k.re.MatchString(s)
	}
	return strings.Contains(s, k.literal)
}

// compiledRule is a productRule with its keywords compiled once.
type compiledRule struct {
	result   schema.Categorization
	matchers []keywordMatcher
}

// Taxonomy is an ordered, compiled set of product rules.
type Taxonomy struct {
	rules []compiledRule
}

// NewTaxonomy compiles the built-in product rules.
func NewTaxonomy() *Taxonomy {
	return compileTaxonomy(productRules)
}

func compileTaxonomy(rules []productRule) *Taxonomy {
	t := &Taxonomy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{result: schema.Categorization{Category: r.Category, Product: r.Product}}
		for _, kw := range r.Keywords {
			kw = strings.ToLower(kw)
			if re, err := regexp.Compile(kw); err == nil {
				cr.matchers = append(cr.matchers, keywordMatcher{re: re})
			} else {
				cr.matchers = append(cr.matchers, keywordMatcher{literal: kw})
			}
		}
		t.rules = append(t.rules, cr)
	}
	return t
}

// Match returns the first rule matching s, case-insensitively.
func (t *Taxonomy) Match(s string) (schema.Categorization, bool) {
	if s == "" {
		return schema.Categorization{}, false
	}
	lower := strings.ToLower(s)
	for _, r := range t.rules {
		for _, m := range r.matchers {
			if m.match(lower) {
				return r.result, true
			}
		}
	}
	return schema.Categorization{}, false
}

// Candidates lists every (category, product) pair in priority order.
func (t *Taxonomy) Candidates() []schema.Categorization {
	out := make([]schema.Categorization, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r.result)
	}
	return out
}
