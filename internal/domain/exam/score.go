package exam

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// scoreAnswers grades submitted answers against the exam's answer key
// and returns a percentage score rounded down. Questions without a
// stored key are skipped rather than counted wrong.
func scoreAnswers(questions []Question, answers map[string]json.RawMessage) int {
	gradable := 0
	correct := 0

	for _, q := range questions {
		if len(q.Correct) == 0 {
			continue
		}
		gradable++

		submitted, ok := answers[q.ID]
		if !ok {
			continue
		}
		if answerMatches(submitted, json.RawMessage(q.Correct)) {
			correct++
		}
	}

	if gradable == 0 {
		return 0
	}
	return correct * 100 / gradable
}

// answerMatches compares a submitted answer to the answer key.
// Lists compare as sets: option order is a client rendering detail.
func answerMatches(submitted, expected json.RawMessage) bool {
	var s, e interface{}
	if err := json.Unmarshal(submitted, &s); err != nil {
		return false
	}
	if err := json.Unmarshal(expected, &e); err != nil {
		return false
	}

	sList, sOK := s.([]interface{})
	eList, eOK := e.([]interface{})
	if sOK && eOK {
		return sameMembers(sList, eList)
	}

	return reflect.DeepEqual(s, e)
}

func sameMembers(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[fmt.Sprintf("%v", v)]++
	}
	for _, v := range b {
		key := fmt.Sprintf("%v", v)
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}
