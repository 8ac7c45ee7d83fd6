package analysis

import "strings"

// Column-name vocabularies. Names are matched after cleaning, so entries are
// lowercase ASCII.
var (
	geographicTerms   = []string{"estado", "municipio", "cidade", "uf", "regiao", "latitude", "longitude", "endereco"}
	financialTerms    = []string{"valor", "preco", "custo", "real", "rs", "brl", "dinheiro", "moeda"}
	dateTerms         = []string{"data", "date", "ano", "mes", "dia", "periodo"}
	stateTerms        = []string{"estado", "uf", "sigla_uf"}
	municipalityTerms = []string{"municipio", "cidade", "nome_municipio"}
	cnpjTerms         = []string{"cnpj"}
	cnesTerms         = []string{"cnes"}
	ibgeTerms         = []string{"ibge", "codigo_municipio", "cod_municipio", "co_municipio"}
	cpfTerms          = []string{"cpf"}
	latitudeTerms     = []string{"latitude", "lat"}
	longitudeTerms    = []string{"longitude", "lon", "lng", "long"}
)

// shortTerm is the longest term matched as a whole token rather than a
// substring, so "uf" matches "sigla_uf" but not "sufixo".
const shortTerm = 3

// matchesAny reports whether a cleaned column name matches one of terms.
func matchesAny(name string, terms []string) bool {
	name = strings.ToLower(name)
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, term := range terms {
		if len(term) > shortTerm {
			if strings.Contains(name, term) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == term {
				return true
			}
		}
	}
	return false
}

// columnsMatching returns the names that match terms, in table order.
func columnsMatching(names []string, terms []string) []string {
	out := []string{}
	for _, n := range names {
		if matchesAny(n, terms) {
			out = append(out, n)
		}
	}
	return out
}

// brazilianStates maps each UF code to the folded state name.
var brazilianStates = map[string]string{
	"AC": "acre", "AL": "alagoas", "AP": "amapa", "AM": "amazonas",
	"BA": "bahia", "CE": "ceara", "DF": "distrito federal", "ES": "espirito santo",
	"GO": "goias", "MA": "maranhao", "MT": "mato grosso", "MS": "mato grosso do sul",
	"MG": "minas gerais", "PA": "para", "PB": "paraiba", "PR": "parana",
	"PE": "pernambuco", "PI": "piaui", "RJ": "rio de janeiro", "RN": "rio grande do norte",
	"RS": "rio grande do sul", "RO": "rondonia", "RR": "roraima", "SC": "santa catarina",
	"SP": "sao paulo", "SE": "sergipe", "TO": "tocantins",
}

var stateNames = func() map[string]bool {
	m := make(map[string]bool, len(brazilianStates))
	for _, name := range brazilianStates {
		m[name] = true
	}
	return m
}()
