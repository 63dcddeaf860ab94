package mssql

import "testing"

func TestMsIdent(t *testing.T) {
	t.Parallel()

	if got := msIdent("plain"); got != "[plain]" {
		t.Fatalf("got %s", got)
	}
	if got := msIdent("we]ird"); got != "[we]]ird]" {
		t.Fatalf("got %s", got)
	}
}

func TestMsFQN(t *testing.T) {
	t.Parallel()

	if got := msFQN("dbo.master_records"); got != "[dbo].[master_records]" {
		t.Fatalf("got %s", got)
	}
	if got := msFQN("bare"); got != "[bare]" {
		t.Fatalf("got %s", got)
	}
}

func TestKeyCondition(t *testing.T) {
	t.Parallel()

	got := keyCondition([]string{"patient_id", "encounter_id"})
	want := "T.[patient_id] = S.[patient_id] AND T.[encounter_id] = S.[encounter_id]"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
