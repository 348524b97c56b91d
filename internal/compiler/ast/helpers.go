package ast

import "github.com/samber/lo"

func uniqueInts(xs []int) []int { return lo.Uniq(xs) }

// FreeVars returns every IdentExpr name referenced transitively within e,
// each name once, in first-seen order. Built with github.com/samber/lo's
// slice helpers over a manually walked expression tree (no reflection).
func FreeVars(e Expr) []string {
	var names []string
	var walk func(Expr)
	walk = func(e Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *IdentExpr:
			names = append(names, n.Name)
		case *BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *UnaryExpr:
			walk(n.Operand)
		case *CallExpr:
			for _, a := range n.Args {
				walk(a)
			}
		case *LayerAccessExpr:
			walk(n.State)
		case *PipeExpr:
			walk(n.Value)
		case *StateLitExpr:
			for _, f := range n.Fields {
				walk(f.Value)
			}
		case *FeedbackExpr:
			walk(n.Operand)
		case *EmergeExpr:
			walk(n.Operand)
		}
	}
	walk(e)
	return lo.Uniq(names)
}
