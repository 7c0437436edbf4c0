package types

import "testing"

func TestParseDocType(t *testing.T) {
	cases := []struct {
		in   string
		want DocType
	}{
		{"Business Requirement Document (BRD)", DocTypeBRD},
		{"  business requirement document (brd) ", DocTypeBRD},
		{"RACI Matrix", DocTypeRACI},
		{"Meeting Minutes", DocTypeCustom},
		{"", DocTypeCustom},
	}
	for _, c := range cases {
		if got := ParseDocType(c.in); got != c.want {
			t.Fatalf("ParseDocType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestKnown(t *testing.T) {
	if !DocTypeSRS.Known() {
		t.Fatal("SRS must be a known type")
	}
	if DocTypeCustom.Known() {
		t.Fatal("Custom must not count as known")
	}
}

func TestAnswersEqual(t *testing.T) {
	a := []Answer{{QuestionID: 0, QuestionText: "q", Text: "x"}}
	b := []Answer{{QuestionID: 0, QuestionText: "q", Text: "x"}}
	if !AnswersEqual(a, b) {
		t.Fatal("identical sets must be equal")
	}
	b[0].Text = "x "
	if AnswersEqual(a, b) {
		t.Fatal("whitespace difference must not be equal")
	}
	if AnswersEqual(a, nil) {
		t.Fatal("length mismatch must not be equal")
	}
}

func TestProjectValidate(t *testing.T) {
	p := Project{ID: "p1", OwnerID: "u1", Name: "N"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	p.Name = ""
	if err := p.Validate(); err == nil {
		t.Fatal("nameless project must not validate")
	}
}
