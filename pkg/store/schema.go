// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

// Schema: ehm_* relations.
//
// Input relations (populated by the upstream C/C++ extractor; read-only to
// ehminer): ehm_branch_call, ehm_call_graph, ehm_call_statistic,
// ehm_function_call.
//
// Output relations (truncated and rebuilt every run): ehm_condition_equivalence,
// ehm_function_similarity, ehm_function_action.
//
// ehm_project_meta backs the last-run checkpoint.

const createBranchCall = `:create ehm_branch_call {
	id: Int =>
	branch_id: Int,
	domain: String,
	project: String,
	call_name: String,
	call_def_loc: String,
	call_id: String,
	call_str: String,
	call_ret: String,
	call_arg: String,
	call_arg_count: Int,
	expr_tokens: String,
	expr_tokens_count: Int,
	path_number_vec: String default '',
	log_name: String,
	log_def_loc: String,
	log_id: String,
	log_str: String
}`

const createCallGraph = `:create ehm_call_graph {
	func_name: String,
	func_def_loc: String,
	call_name: String,
	call_def_loc: String =>
}`

const createCallStatistic = `:create ehm_call_statistic {
	call_name: String,
	call_def_loc: String,
	project: String =>
}`

const createFunctionCall = `:create ehm_function_call {
	call_name: String,
	call_def_loc: String =>
}`

const createConditionEquivalence = `:create ehm_condition_equivalence {
	id: Int =>
	branch_id: Int,
	domain: String,
	project: String,
	call_name: String,
	call_def_loc: String,
	call_id: String,
	call_str: String,
	call_return: String,
	expr_set_id: Int,
	path_intention: String,
	expr_str_vec: String,
	path_number_vec: String,
	log_name: String,
	log_def_loc: String,
	log_id: String,
	log_str: String
}`

const createFunctionSimilarity = `:create ehm_function_similarity {
	id: Int =>
	log_name: String,
	log_def_loc: String,
	intention: String,
	weight: Float
}`

const createFunctionAction = `:create ehm_function_action {
	id: Int =>
	log_name: String,
	log_def_loc: String,
	intention: String,
	trace: String,
	level: Int
}`

const createProjectMeta = `:create ehm_project_meta {
	key: String =>
	value: String
}`

func schemaStatements() []string {
	return []string{
		createBranchCall,
		createCallGraph,
		createCallStatistic,
		createFunctionCall,
		createConditionEquivalence,
		createFunctionSimilarity,
		createFunctionAction,
		createProjectMeta,
	}
}

func indexStatements() []string {
	return []string{
		`::index create ehm_branch_call:by_call { call_name, call_def_loc }`,
		`::index create ehm_call_statistic:by_call { call_name, call_def_loc }`,
		`::index create ehm_function_call:by_call { call_name, call_def_loc }`,
		`::index create ehm_call_graph:by_func { func_name, func_def_loc }`,
	}
}
